package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requiredFields = []string{
	"gpg_public_key",
	"gcs_bucket",
	"recipient_name",
	"file_name",
	"file_path",
	"encrypted_file_path",
}

func validConfigDocument() map[string]any {
	return map[string]any{
		"gpg_public_key":      "projects/p/secrets/gpg",
		"gcs_bucket":          "projects/p/secrets/bucket",
		"recipient_name":      "projects/p/secrets/recipient",
		"file_name":           "report.csv",
		"file_path":           "in/",
		"encrypted_file_path": "out/",
	}
}

func TestParseConfig(t *testing.T) {
	data, err := json.Marshal(validConfigDocument())
	require.NoError(t, err)

	cfg, err := ParseConfig(data, "app/conf.json")
	require.NoError(t, err)
	assert.Equal(t, &PipelineConfig{
		GPGPublicKey:      "projects/p/secrets/gpg",
		GCSBucket:         "projects/p/secrets/bucket",
		RecipientName:     "projects/p/secrets/recipient",
		FileName:          "report.csv",
		FilePath:          "in/",
		EncryptedFilePath: "out/",
	}, cfg)

	assert.Equal(t, "in/report.csv", cfg.SourceKey())
	assert.Equal(t, "out/report.csv.asc", cfg.DestinationKey())
}

func TestParseConfig_EmptyPrefixes(t *testing.T) {
	doc := validConfigDocument()
	doc["file_path"] = ""
	doc["encrypted_file_path"] = ""
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	cfg, err := ParseConfig(data, "conf.json")
	require.NoError(t, err)
	assert.Equal(t, "report.csv", cfg.SourceKey())
	assert.Equal(t, "report.csv.asc", cfg.DestinationKey())
}

func TestParseConfig_MissingFields(t *testing.T) {
	for _, field := range requiredFields {
		t.Run("absent "+field, func(t *testing.T) {
			doc := validConfigDocument()
			delete(doc, field)
			data, err := json.Marshal(doc)
			require.NoError(t, err)

			_, err = ParseConfig(data, "conf.json")
			require.Error(t, err)
			assert.Contains(t, err.Error(), field)
		})

		t.Run("null "+field, func(t *testing.T) {
			doc := validConfigDocument()
			doc[field] = nil
			data, err := json.Marshal(doc)
			require.NoError(t, err)

			_, err = ParseConfig(data, "conf.json")
			require.Error(t, err)
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestParseConfig_Malformed(t *testing.T) {
	for _, data := range []string{
		"",
		"not json",
		"[]",
		"null",
		`{"gpg_public_key": 5}`,
	} {
		_, err := ParseConfig([]byte(data), "conf.json")
		assert.Error(t, err, data)
	}
}

func TestParseConfig_YAML(t *testing.T) {
	data := []byte(`
gpg_public_key: projects/p/secrets/gpg
gcs_bucket: projects/p/secrets/bucket
recipient_name: projects/p/secrets/recipient
file_name: report.csv
file_path: in/
encrypted_file_path: out/
`)

	for _, key := range []string{"conf.yaml", "app/CONF.YML"} {
		cfg, err := ParseConfig(data, key)
		require.NoError(t, err, key)
		assert.Equal(t, "out/report.csv.asc", cfg.DestinationKey())
	}

	// YAML is only accepted for YAML keys
	_, err := ParseConfig(data, "conf.json")
	assert.Error(t, err)

	_, err = ParseConfig([]byte("file_name: [unterminated"), "conf.yaml")
	assert.Error(t, err)
}
