package portal

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	biPattern = regexp.MustCompile(`^\d{9}[A-Z]{2}\d{3}$`)
	nonDigits = regexp.MustCompile(`\D`)
)

// validate checks request structs. Custom tags: angolan_bi and angolan_phone.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("angolan_bi", validateBI)
	_ = validate.RegisterValidation("angolan_phone", validatePhone)
}

// ValidBI reports whether bi has the identity card layout: nine digits, two
// upper-case letters, three digits (e.g. 004123456LA041).
func ValidBI(bi string) bool {
	return biPattern.MatchString(strings.TrimSpace(bi))
}

// ValidPhone accepts Angolan numbers with or without the 244 country code,
// ignoring spaces and punctuation.
func ValidPhone(phone string) bool {
	digits := nonDigits.ReplaceAllString(phone, "")
	switch len(digits) {
	case 12:
		return strings.HasPrefix(digits, "2449")
	case 9:
		return strings.HasPrefix(digits, "9")
	default:
		return false
	}
}

func validateBI(fl validator.FieldLevel) bool {
	return ValidBI(fl.Field().String())
}

func validatePhone(fl validator.FieldLevel) bool {
	return ValidPhone(fl.Field().String())
}

// check validates v and wraps failures in kind, naming every bad field.
func check(kind error, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", kind, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(fields, ", "))
}
