package pipeline

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"sigs.k8s.io/yaml"
)

// EncryptedSuffix is appended to the file name of every encrypted object.
const EncryptedSuffix = ".asc"

// PipelineConfig is the configuration object of one invocation.
// GPGPublicKey, GCSBucket and RecipientName are secret identifiers.
type PipelineConfig struct {
	GPGPublicKey      string `json:"gpg_public_key"`
	GCSBucket         string `json:"gcs_bucket"`
	RecipientName     string `json:"recipient_name"`
	FileName          string `json:"file_name"`
	FilePath          string `json:"file_path"`
	EncryptedFilePath string `json:"encrypted_file_path"`
}

// SourceKey is the key of the plaintext object in the data container.
func (c *PipelineConfig) SourceKey() string {
	return c.FilePath + c.FileName
}

// DestinationKey is the key the ciphertext is written to in the data container.
func (c *PipelineConfig) DestinationKey() string {
	return c.EncryptedFilePath + c.FileName + EncryptedSuffix
}

// pipelineConfigDocument distinguishes absent and null fields from empty strings.
type pipelineConfigDocument struct {
	GPGPublicKey      *string `json:"gpg_public_key"`
	GCSBucket         *string `json:"gcs_bucket"`
	RecipientName     *string `json:"recipient_name"`
	FileName          *string `json:"file_name"`
	FilePath          *string `json:"file_path"`
	EncryptedFilePath *string `json:"encrypted_file_path"`
}

// ParseConfig decodes a configuration document. Documents whose key ends in
// .yaml or .yml are read as YAML, everything else as JSON. All six fields must
// be present and non-null.
func ParseConfig(data []byte, key string) (*PipelineConfig, error) {
	switch strings.ToLower(path.Ext(key)) {
	case ".yaml", ".yml":
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("invalid YAML configuration: %w", err)
		}
		data = converted
	}

	var doc pipelineConfigDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON configuration: %w", err)
	}

	var missing []string
	field := func(name string, value *string) string {
		if value == nil {
			missing = append(missing, name)
			return ""
		}
		return *value
	}

	cfg := &PipelineConfig{
		GPGPublicKey:      field("gpg_public_key", doc.GPGPublicKey),
		GCSBucket:         field("gcs_bucket", doc.GCSBucket),
		RecipientName:     field("recipient_name", doc.RecipientName),
		FileName:          field("file_name", doc.FileName),
		FilePath:          field("file_path", doc.FilePath),
		EncryptedFilePath: field("encrypted_file_path", doc.EncryptedFilePath),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration fields: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
