package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// Generator produces record identifiers. Services accept one so tests can
// substitute a deterministic sequence.
type Generator func() string

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
}

// Prefixed returns a generator that prepends prefix and an underscore to every id,
// e.g. "reg_01hv...".
func Prefixed(prefix string, gen Generator) Generator {
	if gen == nil {
		gen = New
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return gen
	}
	return func() string { return prefix + "_" + gen() }
}
