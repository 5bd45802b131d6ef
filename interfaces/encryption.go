package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrRecipientNotFound is returned when no imported key matches the requested recipient.
	ErrRecipientNotFound = errors.New("recipient key not found")

	// ErrUntrustedRecipient is returned when the recipient key has no certification and
	// the caller did not ask for always-trust.
	ErrUntrustedRecipient = errors.New("recipient key is not trusted")

	// ErrNoKeysImported is returned when key material contains no usable public key.
	ErrNoKeysImported = errors.New("no public keys imported")
)

// ImportResult reports what a key import added to (or found in) the engine keyring.
type ImportResult struct {
	// Count is the number of public keys in the imported material.
	Count int

	// Fingerprints lists the upper-case hex fingerprints of the imported keys.
	Fingerprints []string
}

// EncryptOptions controls recipient selection for a single encryption.
type EncryptOptions struct {
	// AlwaysTrust skips the certification check on the recipient key.
	AlwaysTrust bool

	// Fingerprints, when non-empty, restricts recipient lookup to these keys.
	Fingerprints []string
}

// EncryptResult is the engine's report for one encryption.
type EncryptResult struct {
	// OK is true when Data holds a complete armored message.
	OK bool

	// Data is the ASCII-armored ciphertext.
	Data []byte

	// Status carries the engine diagnostic when OK is false.
	Status string

	// Err is the cause behind Status, if the engine has one.
	Err error
}

// String returns the armored ciphertext.
func (r *EncryptResult) String() string {
	return string(r.Data)
}

// EncryptionEngine is the OpenPGP capability used by the encryption stage.
// Implementations must be safe for concurrent use.
type EncryptionEngine interface {
	// ImportKeys adds the public keys in material to the engine keyring. Importing
	// the same key twice is not an error.
	ImportKeys(ctx context.Context, material []byte) (*ImportResult, error)

	// ReleaseKeys undoes one ImportKeys for each fingerprint. Keys no import
	// still holds are removed from the keyring.
	ReleaseKeys(fingerprints []string)

	// Encrypt encrypts plaintext for the named recipients. Engine-level failures are
	// reported through EncryptResult.OK and EncryptResult.Status.
	Encrypt(ctx context.Context, plaintext []byte, recipients []string, opts EncryptOptions) (*EncryptResult, error)
}
