package encryption

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

func TestStage_EncryptsForImportedKey(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	stage := NewStage(NewPGPEngine(testLogger()), testLogger())

	plaintext := []byte("quarterly,report\n")
	ciphertext, err := stage.Encrypt(context.Background(), plaintext, string(armoredPublicKey(t, alice)), "Alice Example")
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypt(t, alice, ciphertext))
}

func TestStage_IgnoresKeysFromOtherRequests(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	bob := newTestKey(t, "Bob Example", "bob@example.com")
	engine := NewPGPEngine(testLogger())
	stage := NewStage(engine, testLogger())
	ctx := context.Background()

	// Another request holds bob's key in the shared keyring
	_, err := engine.ImportKeys(ctx, armoredPublicKey(t, bob))
	require.NoError(t, err)

	_, err = stage.Encrypt(ctx, []byte("b"), string(armoredPublicKey(t, alice)), "bob@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.ErrorIs(t, err, interfaces.ErrRecipientNotFound)
}

func TestStage_ReleasesImportedKeys(t *testing.T) {
	alice := newTestKey(t, "Alice Example", "alice@example.com")
	bob := newTestKey(t, "Bob Example", "bob@example.com")
	engine := NewPGPEngine(testLogger())
	stage := NewStage(engine, testLogger())
	ctx := context.Background()

	held, err := engine.ImportKeys(ctx, armoredPublicKey(t, bob))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = stage.Encrypt(ctx, []byte("a"), string(armoredPublicKey(t, alice)), "alice@example.com")
		require.NoError(t, err)
		_, err = stage.Encrypt(ctx, []byte("b"), string(armoredPublicKey(t, bob)), "bob@example.com")
		require.NoError(t, err)
	}

	// Only the key imported outside the stage is left
	assert.Len(t, engine.keyring, 1)
	assert.Equal(t, held.Fingerprints, engine.order)
	assert.Equal(t, 1, engine.keyring[held.Fingerprints[0]].refs)

	// Failed encryptions release their keys as well
	_, err = stage.Encrypt(ctx, []byte("c"), string(armoredPublicKey(t, alice)), "mallory@example.com")
	require.Error(t, err)
	assert.Len(t, engine.keyring, 1)

	engine.ReleaseKeys(held.Fingerprints)
	assert.Empty(t, engine.keyring)
	assert.Empty(t, engine.order)
}

func TestStage_ImportFailure(t *testing.T) {
	engine := new(MockEngine)
	engine.On("ImportKeys", mock.Anything, []byte("bad")).Return(nil, interfaces.ErrNoKeysImported)

	stage := NewStage(engine, testLogger())
	_, err := stage.Encrypt(context.Background(), []byte("data"), "bad", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrNoKeysImported)
	assert.NotErrorIs(t, err, ErrEngineFailure)

	engine.AssertNotCalled(t, "Encrypt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStage_EngineStatusPropagated(t *testing.T) {
	engine := new(MockEngine)
	engine.On("ImportKeys", mock.Anything, []byte("key")).
		Return(&interfaces.ImportResult{Count: 1, Fingerprints: []string{"ABCD"}}, nil)
	engine.On("Encrypt", mock.Anything, []byte("data"), []string{"alice"}, interfaces.EncryptOptions{
		AlwaysTrust:  true,
		Fingerprints: []string{"ABCD"},
	}).Return(&interfaces.EncryptResult{OK: false, Status: "invalid recipient"}, nil)
	engine.On("ReleaseKeys", []string{"ABCD"}).Return()

	stage := NewStage(engine, testLogger())
	_, err := stage.Encrypt(context.Background(), []byte("data"), "key", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineFailure)
	assert.Contains(t, err.Error(), "invalid recipient")

	engine.AssertExpectations(t)
}
