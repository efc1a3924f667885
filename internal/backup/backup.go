// Package backup writes and restores store snapshots as JSON files,
// optionally encrypted with age (passphrase or X25519 recipients).
package backup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"filippo.io/age"

	"maptss.ao/internal/errs"
	"maptss.ao/internal/store"
)

// FormatVersion is written into every backup envelope.
const FormatVersion = 1

const ageHeader = "age-encryption.org/v1"

var (
	ErrPassphraseRequired = errors.New("backup is encrypted: passphrase or identity required")
	ErrUnsupportedVersion = errors.New("unsupported backup version")
	ErrIncompleteBackup   = fmt.Errorf("%w: backup does not cover every collection", errs.ErrValidation)
)

// Envelope is the on-disk backup layout.
type Envelope struct {
	Version     int            `json:"version"`
	ExportedAt  time.Time      `json:"exportedAt"`
	Collections store.Snapshot `json:"collections"`
}

// Options select encryption. Passphrase and Recipients are mutually
// exclusive when writing; Identities (AGE-SECRET-KEY-1...) or Passphrase
// unlock an encrypted backup when reading. ScryptWorkFactor overrides age's
// default log2 cost for passphrase encryption.
type Options struct {
	Passphrase       string
	Recipients       []string
	Identities       []string
	ScryptWorkFactor int
	Now              func() time.Time
}

func (o Options) encrypted() bool {
	return o.Passphrase != "" || len(o.Recipients) > 0
}

// Write exports every collection of db to w.
func Write(ctx context.Context, db *store.DB, w io.Writer, opts Options) error {
	snap, err := db.ExportAll(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	env := Envelope{Version: FormatVersion, ExportedAt: now().UTC(), Collections: snap}

	out := w
	var enc io.WriteCloser
	if opts.encrypted() {
		recipients, err := opts.recipients()
		if err != nil {
			return err
		}
		enc, err = age.Encrypt(w, recipients...)
		if err != nil {
			return fmt.Errorf("creating encrypted writer: %w", err)
		}
		out = enc
	}
	jw := json.NewEncoder(out)
	jw.SetIndent("", "  ")
	if err := jw.Encode(env); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("finalizing encryption: %w", err)
		}
	}
	return nil
}

// Read decodes a backup from r, decrypting when needed, without touching
// any store.
func Read(r io.Reader, opts Options) (Envelope, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(ageHeader))
	var src io.Reader = br
	if bytes.Equal(head, []byte(ageHeader)) {
		identities, err := opts.identities()
		if err != nil {
			return Envelope{}, err
		}
		dec, err := age.Decrypt(br, identities...)
		if err != nil {
			return Envelope{}, fmt.Errorf("decrypting backup: %w", err)
		}
		src = dec
	}
	var env Envelope
	d := json.NewDecoder(src)
	d.UseNumber()
	if err := d.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode backup: %w", err)
	}
	if env.Version != FormatVersion {
		return Envelope{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	if env.Collections == nil {
		env.Collections = store.Snapshot{}
	}
	return env, nil
}

// Restore reads a backup and replaces every collection of db with it. A
// backup that leaves out any collection of db is refused before anything is
// written, since the import would empty that collection.
func Restore(ctx context.Context, db *store.DB, r io.Reader, opts Options) (Envelope, error) {
	env, err := Read(r, opts)
	if err != nil {
		return Envelope{}, err
	}
	var missing []string
	for _, name := range db.Collections() {
		if _, ok := env.Collections[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return Envelope{}, fmt.Errorf("%w: missing %s", ErrIncompleteBackup, strings.Join(missing, ", "))
	}
	if err := db.ImportAll(ctx, env.Collections); err != nil {
		return Envelope{}, fmt.Errorf("import: %w", err)
	}
	return env, nil
}

func (o Options) recipients() ([]age.Recipient, error) {
	if o.Passphrase != "" && len(o.Recipients) > 0 {
		return nil, errors.New("backup: passphrase and recipients cannot be combined")
	}
	if o.Passphrase != "" {
		r, err := age.NewScryptRecipient(o.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt recipient: %w", err)
		}
		if o.ScryptWorkFactor > 0 {
			r.SetWorkFactor(o.ScryptWorkFactor)
		}
		return []age.Recipient{r}, nil
	}
	out := make([]age.Recipient, 0, len(o.Recipients))
	for _, s := range o.Recipients {
		r, err := age.ParseX25519Recipient(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("parsing recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (o Options) identities() ([]age.Identity, error) {
	var out []age.Identity
	for _, s := range o.Identities {
		id, err := age.ParseX25519Identity(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
		out = append(out, id)
	}
	if o.Passphrase != "" {
		id, err := age.NewScryptIdentity(o.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt identity: %w", err)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, ErrPassphraseRequired
	}
	return out, nil
}
