package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeAuthHeadersAt(t *testing.T) {
	auth := &BridgeAuth{Key: "bridge-key", Secret: "bridge-secret"}

	headers := auth.HeadersAt("POST", "/api/order", `{"symbol":"EURUSD"}`, 1735689600)
	assert.Equal(t, "bridge-key", headers["X-Bridge-Key"])
	assert.Equal(t, "1735689600", headers["X-Bridge-Timestamp"])
	assert.NotEmpty(t, headers["X-Bridge-Signature"])

	// Same inputs, same signature.
	again := auth.HeadersAt("POST", "/api/order", `{"symbol":"EURUSD"}`, 1735689600)
	assert.Equal(t, headers["X-Bridge-Signature"], again["X-Bridge-Signature"])

	// Any input change produces a different signature.
	other := auth.HeadersAt("GET", "/api/order", `{"symbol":"EURUSD"}`, 1735689600)
	assert.NotEqual(t, headers["X-Bridge-Signature"], other["X-Bridge-Signature"])

	later := auth.HeadersAt("POST", "/api/order", `{"symbol":"EURUSD"}`, 1735689601)
	assert.NotEqual(t, headers["X-Bridge-Signature"], later["X-Bridge-Signature"])
}

func TestBridgeAuthStringRedacts(t *testing.T) {
	auth := &BridgeAuth{Key: "abcdef123456", Secret: "sup"}
	s := auth.String()
	assert.Contains(t, s, "abcd****")
	assert.NotContains(t, s, "abcdef123456")
	assert.NotContains(t, s, "sup*")
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptCredential("broker-password-42", "correct horse")
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"version": 1`)

	plain, err := DecryptCredential(blob, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "broker-password-42", plain)
}

func TestEncryptProducesUniqueBlobs(t *testing.T) {
	a, err := EncryptCredential("secret", "pass")
	require.NoError(t, err)
	b, err := EncryptCredential("secret", "pass")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "salt and nonce are random per encryption")
}

func TestDecryptWrongPassphrase(t *testing.T) {
	blob, err := EncryptCredential("secret", "right")
	require.NoError(t, err)

	_, err = DecryptCredential(blob, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestDecryptRejectsBadInput(t *testing.T) {
	_, err := DecryptCredential([]byte("not json"), "pass")
	assert.Error(t, err)

	_, err = DecryptCredential([]byte(`{"version":2}`), "pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")

	_, err = DecryptCredential([]byte(`{"version":1}`), "")
	assert.Error(t, err)
}

func TestEncryptRejectsEmptyInputs(t *testing.T) {
	_, err := EncryptCredential("", "pass")
	assert.Error(t, err)

	_, err = EncryptCredential("secret", "")
	assert.Error(t, err)
}

func TestLoadCredential(t *testing.T) {
	t.Run("raw wins", func(t *testing.T) {
		got, err := LoadCredential(CredentialConfig{Raw: "plain", EncryptedPath: "/nope"})
		require.NoError(t, err)
		assert.Equal(t, "plain", got)
	})

	t.Run("encrypted file", func(t *testing.T) {
		blob, err := EncryptCredential("from-file", "pass")
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "broker.cred")
		require.NoError(t, os.WriteFile(path, blob, 0o600))

		got, err := LoadCredential(CredentialConfig{EncryptedPath: path, Passphrase: "pass"})
		require.NoError(t, err)
		assert.Equal(t, "from-file", got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredential(CredentialConfig{EncryptedPath: filepath.Join(t.TempDir(), "absent"), Passphrase: "pass"})
		assert.Error(t, err)
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := LoadCredential(CredentialConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no credential source configured")
	})
}
