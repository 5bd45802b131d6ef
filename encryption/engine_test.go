package encryption

import (
	"bytes"
	"context"
	"crypto"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestKey(t *testing.T, name, email string) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity(name, "", email, nil)
	require.NoError(t, err)
	// Signs the self-signatures so that Serialize can emit them
	require.NoError(t, entity.SerializePrivate(io.Discard, nil))
	return entity
}

func armoredPublicKey(t *testing.T, entities ...*openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	for _, entity := range entities {
		require.NoError(t, entity.Serialize(w))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func decrypt(t *testing.T, key *openpgp.Entity, ciphertext []byte) []byte {
	t.Helper()
	block, err := armor.Decode(bytes.NewReader(ciphertext))
	require.NoError(t, err)
	require.Equal(t, "PGP MESSAGE", block.Type)

	md, err := openpgp.ReadMessage(block.Body, openpgp.EntityList{key}, nil, nil)
	require.NoError(t, err)
	plaintext, err := io.ReadAll(md.UnverifiedBody)
	require.NoError(t, err)
	return plaintext
}

func TestPGPEngine_RoundTrip(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	engine := NewPGPEngine(testLogger())
	ctx := context.Background()

	imported, err := engine.ImportKeys(ctx, armoredPublicKey(t, alice))
	require.NoError(t, err)
	require.Equal(t, 1, imported.Count)
	require.Len(t, imported.Fingerprints, 1)

	plaintext := []byte("id,amount\n1,100\n2,250\n")

	for _, recipient := range []string{
		"Alice Example",
		"alice example",
		"alice@example.com",
		"<ALICE@example.com>",
		"Alice Example <alice@example.com>",
		imported.Fingerprints[0],
		alice.PrimaryKey.KeyIdString(),
		"0x" + alice.PrimaryKey.KeyIdShortString(),
	} {
		t.Run(recipient, func(t *testing.T) {
			result, err := engine.Encrypt(ctx, plaintext, []string{recipient}, interfaces.EncryptOptions{AlwaysTrust: true})
			require.NoError(t, err)
			require.True(t, result.OK, result.Status)
			assert.True(t, bytes.HasPrefix(result.Data, []byte("-----BEGIN PGP MESSAGE-----")))
			assert.Equal(t, plaintext, decrypt(t, alice, result.Data))
		})
	}
}

func TestPGPEngine_HashPreferences(t *testing.T) {
	noPreference := newTestKey(t, "Alice Example", "alice@example.com")
	for _, ident := range noPreference.Identities {
		require.Empty(t, ident.SelfSignature.PreferredHash)
	}

	sha256Key, err := openpgp.NewEntity("Bob Example", "", "bob@example.com", &packet.Config{DefaultHash: crypto.SHA256})
	require.NoError(t, err)
	require.NoError(t, sha256Key.SerializePrivate(io.Discard, nil))

	engine := NewPGPEngine(testLogger())
	ctx := context.Background()

	for _, key := range []*openpgp.Entity{noPreference, sha256Key} {
		imported, err := engine.ImportKeys(ctx, armoredPublicKey(t, key))
		require.NoError(t, err)

		result, err := engine.Encrypt(ctx, []byte("payload"), []string{imported.Fingerprints[0]}, interfaces.EncryptOptions{AlwaysTrust: true})
		require.NoError(t, err)
		require.True(t, result.OK, result.Status)
		assert.Equal(t, []byte("payload"), decrypt(t, key, result.Data))
	}
}

func TestPGPEngine_ReleaseKeys(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	engine := NewPGPEngine(testLogger())
	ctx := context.Background()

	first, err := engine.ImportKeys(ctx, armoredPublicKey(t, alice))
	require.NoError(t, err)
	_, err = engine.ImportKeys(ctx, armoredPublicKey(t, alice))
	require.NoError(t, err)

	engine.ReleaseKeys(first.Fingerprints)
	result, err := engine.Encrypt(ctx, []byte("data"), []string{"alice@example.com"}, interfaces.EncryptOptions{AlwaysTrust: true})
	require.NoError(t, err)
	assert.True(t, result.OK, result.Status)

	engine.ReleaseKeys(first.Fingerprints)
	assert.Empty(t, engine.keyring)
	assert.Empty(t, engine.order)

	result, err = engine.Encrypt(ctx, []byte("data"), []string{"alice@example.com"}, interfaces.EncryptOptions{AlwaysTrust: true})
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err, interfaces.ErrRecipientNotFound)

	// Unknown fingerprints are ignored
	engine.ReleaseKeys([]string{"DEADBEEF"})
}

func TestPGPEngine_ImportIsIdempotent(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	engine := NewPGPEngine(testLogger())
	ctx := context.Background()

	first, err := engine.ImportKeys(ctx, armoredPublicKey(t, alice))
	require.NoError(t, err)
	second, err := engine.ImportKeys(ctx, armoredPublicKey(t, alice))
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprints, second.Fingerprints)
	assert.Len(t, engine.order, 1)
	assert.Len(t, engine.keyring, 1)
}

func TestPGPEngine_BinaryKeyring(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	var buf bytes.Buffer
	require.NoError(t, alice.Serialize(&buf))

	engine := NewPGPEngine(testLogger())
	imported, err := engine.ImportKeys(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Count)
}

func TestPGPEngine_BadKeyMaterial(t *testing.T) {
	engine := NewPGPEngine(testLogger())
	ctx := context.Background()

	for _, material := range [][]byte{
		nil,
		[]byte("   \n"),
		[]byte("not a key"),
		[]byte("-----BEGIN PGP PUBLIC KEY BLOCK-----\n\ngarbage\n-----END PGP PUBLIC KEY BLOCK-----\n"),
	} {
		_, err := engine.ImportKeys(ctx, material)
		assert.Error(t, err, string(material))
	}
	assert.Empty(t, engine.keyring)
}

func TestPGPEngine_UnknownRecipient(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	engine := NewPGPEngine(testLogger())
	ctx := context.Background()

	_, err := engine.ImportKeys(ctx, armoredPublicKey(t, alice))
	require.NoError(t, err)

	result, err := engine.Encrypt(ctx, []byte("data"), []string{"mallory@example.com"}, interfaces.EncryptOptions{AlwaysTrust: true})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, interfaces.ErrRecipientNotFound)
	assert.Contains(t, result.Status, "mallory@example.com")
	assert.Empty(t, result.Data)

	result, err = engine.Encrypt(ctx, []byte("data"), nil, interfaces.EncryptOptions{AlwaysTrust: true})
	require.NoError(t, err)
	assert.False(t, result.OK)
}

func TestPGPEngine_FingerprintRestriction(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	bob := newTestKey(t, "Bob Example", "bob@example.com")
	engine := NewPGPEngine(testLogger())
	ctx := context.Background()

	aliceImport, err := engine.ImportKeys(ctx, armoredPublicKey(t, alice))
	require.NoError(t, err)
	_, err = engine.ImportKeys(ctx, armoredPublicKey(t, bob))
	require.NoError(t, err)

	// Bob's key is in the keyring but outside the restricted set
	result, err := engine.Encrypt(ctx, []byte("data"), []string{"bob@example.com"}, interfaces.EncryptOptions{
		AlwaysTrust:  true,
		Fingerprints: aliceImport.Fingerprints,
	})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, interfaces.ErrRecipientNotFound)

	result, err = engine.Encrypt(ctx, []byte("data"), []string{"bob@example.com"}, interfaces.EncryptOptions{AlwaysTrust: true})
	require.NoError(t, err)
	assert.True(t, result.OK, result.Status)
	assert.Equal(t, []byte("data"), decrypt(t, bob, result.Data))
}

func TestPGPEngine_Trust(t *testing.T) {
	signer := newTestKey(t, "Signer", "signer@example.com")
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	engine := NewPGPEngine(testLogger())
	ctx := context.Background()

	_, err := engine.ImportKeys(ctx, armoredPublicKey(t, alice))
	require.NoError(t, err)

	result, err := engine.Encrypt(ctx, []byte("data"), []string{"alice@example.com"}, interfaces.EncryptOptions{})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.ErrorIs(t, result.Err, interfaces.ErrUntrustedRecipient)

	// Certify alice's identity with the signer and import both
	require.NoError(t, alice.SignIdentity("Alice Example <alice@example.com>", signer, nil))
	_, err = engine.ImportKeys(ctx, armoredPublicKey(t, signer, alice))
	require.NoError(t, err)

	result, err = engine.Encrypt(ctx, []byte("data"), []string{"alice@example.com"}, interfaces.EncryptOptions{})
	require.NoError(t, err)
	assert.True(t, result.OK, result.Status)
	assert.Equal(t, []byte("data"), decrypt(t, alice, result.Data))
}

func TestPGPEngine_CanceledContext(t *testing.T) {
	engine := NewPGPEngine(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.ImportKeys(ctx, []byte("anything"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = engine.Encrypt(ctx, []byte("data"), []string{"x"}, interfaces.EncryptOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
