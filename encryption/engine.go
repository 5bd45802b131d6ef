package encryption

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
	// Hash used for keys whose self-signature states no preference.
	_ "golang.org/x/crypto/ripemd160"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// PGPEngine is an in-process OpenPGP engine holding a public keyring.
//
// The keyring is shared by all callers and keyed by fingerprint, so importing
// the same key again replaces it in place. Callers that must not see keys
// imported by others pass the fingerprints returned from ImportKeys in
// EncryptOptions. Every import holds a reference on its keys until released
// with ReleaseKeys.
type PGPEngine struct {
	config *packet.Config
	log    *slog.Logger

	mu      sync.RWMutex
	order   []string
	keyring map[string]*keyEntry
}

type keyEntry struct {
	entity *openpgp.Entity
	refs   int
}

// NewPGPEngine creates an engine with an empty keyring.
func NewPGPEngine(log *slog.Logger) *PGPEngine {
	return &PGPEngine{
		config: &packet.Config{
			DefaultCipher:          packet.CipherAES256,
			DefaultCompressionAlgo: packet.CompressionZLIB,
		},
		log:     log,
		keyring: make(map[string]*keyEntry),
	}
}

// ImportKeys reads an armored or binary public keyring and adds every key to
// the engine keyring.
func (e *PGPEngine) ImportKeys(ctx context.Context, material []byte) (*interfaces.ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities, err := readKeyRing(material)
	if err != nil {
		return nil, fmt.Errorf("failed to read key material: %w", err)
	}
	if len(entities) == 0 {
		return nil, interfaces.ErrNoKeysImported
	}

	result := &interfaces.ImportResult{Count: len(entities)}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, entity := range entities {
		fp := fingerprint(entity)
		entry, exists := e.keyring[fp]
		if !exists {
			entry = &keyEntry{}
			e.keyring[fp] = entry
			e.order = append(e.order, fp)
		}
		entry.entity = entity
		entry.refs++
		result.Fingerprints = append(result.Fingerprints, fp)
	}

	e.log.Debug("Imported public keys",
		slog.Int("count", result.Count),
		slog.Any("fingerprints", result.Fingerprints))

	return result, nil
}

// ReleaseKeys drops one reference per fingerprint, as returned by ImportKeys.
// A key leaves the keyring once nothing references it.
func (e *PGPEngine) ReleaseKeys(fingerprints []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, fp := range fingerprints {
		fp = strings.ToUpper(fp)
		entry, ok := e.keyring[fp]
		if !ok {
			continue
		}
		entry.refs--
		if entry.refs > 0 {
			continue
		}
		delete(e.keyring, fp)
		for i, ordered := range e.order {
			if ordered == fp {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
	}
}

// Encrypt produces an ASCII-armored OpenPGP message for the given recipients.
func (e *PGPEngine) Encrypt(ctx context.Context, plaintext []byte, recipients []string, opts interfaces.EncryptOptions) (*interfaces.EncryptResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(recipients) == 0 {
		return failed(errors.New("no recipients specified")), nil
	}

	to := make([]*openpgp.Entity, 0, len(recipients))
	for _, recipient := range recipients {
		entity, err := e.lookup(recipient, opts)
		if err != nil {
			return failed(fmt.Errorf("%s: %w", recipient, err)), nil
		}
		to = append(to, entity)
	}

	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		return failed(fmt.Errorf("armor: %w", err)), nil
	}

	w, err := openpgp.Encrypt(aw, to, nil, &openpgp.FileHints{}, e.config)
	if err != nil {
		return failed(err), nil
	}
	if _, err := w.Write(plaintext); err != nil {
		return failed(err), nil
	}
	if err := w.Close(); err != nil {
		return failed(err), nil
	}
	if err := aw.Close(); err != nil {
		return failed(err), nil
	}

	return &interfaces.EncryptResult{OK: true, Data: buf.Bytes()}, nil
}

// lookup finds the first key (in import order) matching recipient, honoring
// the fingerprint restriction and the trust requirement.
func (e *PGPEngine) lookup(recipient string, opts interfaces.EncryptOptions) (*openpgp.Entity, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	candidates := e.order
	if len(opts.Fingerprints) > 0 {
		candidates = opts.Fingerprints
	}

	query := strings.ToLower(strings.TrimSpace(recipient))
	if query == "" {
		return nil, interfaces.ErrRecipientNotFound
	}

	for _, fp := range candidates {
		entry, ok := e.keyring[strings.ToUpper(fp)]
		if !ok || !matches(entry.entity, query) {
			continue
		}
		if !opts.AlwaysTrust && !e.certified(entry.entity) {
			return nil, interfaces.ErrUntrustedRecipient
		}
		return entry.entity, nil
	}

	return nil, interfaces.ErrRecipientNotFound
}

// certified reports whether some identity of entity carries a valid
// certification from another key in the keyring. Must be called with e.mu held.
func (e *PGPEngine) certified(entity *openpgp.Entity) bool {
	for name, ident := range entity.Identities {
		for _, sig := range ident.Signatures {
			if sig.IssuerKeyId == nil || *sig.IssuerKeyId == entity.PrimaryKey.KeyId {
				continue
			}
			for _, signer := range e.keyring {
				if signer.entity.PrimaryKey.KeyId != *sig.IssuerKeyId {
					continue
				}
				if signer.entity.PrimaryKey.VerifyUserIdSignature(name, entity.PrimaryKey, sig) == nil {
					return true
				}
			}
		}
	}
	return false
}

// matches implements recipient selection: fingerprint, long or short key id,
// exact e-mail, or a case-insensitive substring of a user id.
func matches(entity *openpgp.Entity, query string) bool {
	hexQuery := strings.TrimPrefix(query, "0x")
	fp := strings.ToLower(fingerprint(entity))
	if isHex(hexQuery) && (len(hexQuery) == 40 || len(hexQuery) == 16 || len(hexQuery) == 8) {
		if strings.HasSuffix(fp, hexQuery) {
			return true
		}
		for _, subkey := range entity.Subkeys {
			if strings.HasSuffix(strings.ToLower(hex.EncodeToString(subkey.PublicKey.Fingerprint[:])), hexQuery) {
				return true
			}
		}
	}

	email := strings.Trim(query, "<>")
	for _, ident := range entity.Identities {
		if ident.UserId == nil {
			continue
		}
		if strings.EqualFold(ident.UserId.Email, email) {
			return true
		}
		if strings.Contains(strings.ToLower(ident.UserId.Id), query) {
			return true
		}
	}
	return false
}

func readKeyRing(material []byte) (openpgp.EntityList, error) {
	trimmed := bytes.TrimSpace(material)
	if len(trimmed) == 0 {
		return nil, errors.New("empty key material")
	}
	if bytes.HasPrefix(trimmed, []byte("-----BEGIN")) {
		return openpgp.ReadArmoredKeyRing(bytes.NewReader(trimmed))
	}
	return openpgp.ReadKeyRing(bytes.NewReader(trimmed))
}

func fingerprint(entity *openpgp.Entity) string {
	return strings.ToUpper(hex.EncodeToString(entity.PrimaryKey.Fingerprint[:]))
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

func failed(err error) *interfaces.EncryptResult {
	return &interfaces.EncryptResult{OK: false, Status: err.Error(), Err: err}
}
