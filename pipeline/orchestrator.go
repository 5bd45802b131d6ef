package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ruteri/blob-encryption-service/common"
	"github.com/ruteri/blob-encryption-service/encryption"
	"github.com/ruteri/blob-encryption-service/interfaces"
	"github.com/ruteri/blob-encryption-service/metrics"
)

// CiphertextContentType is the content type of stored ciphertext objects.
const CiphertextContentType = "text/plain"

var errSourceNotText = errors.New("source object is not valid UTF-8 text")

// Orchestrator runs the encryption pipeline. It holds no per-invocation
// state and may be used from many goroutines at once.
type Orchestrator struct {
	stores     interfaces.BlobStoreFactory
	secrets    interfaces.SecretResolver
	stage      *encryption.Stage
	metrics    *metrics.PipelineMetrics
	dataScheme string
	log        *slog.Logger
}

// NewOrchestrator wires the pipeline dependencies. m may be nil.
func NewOrchestrator(stores interfaces.BlobStoreFactory, secrets interfaces.SecretResolver, engine interfaces.EncryptionEngine, m *metrics.PipelineMetrics, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		stores:  stores,
		secrets: secrets,
		stage:   encryption.NewStage(engine, log),
		metrics: m,
		log:     log,
	}
}

// WithDataScheme returns a copy of o that reads sources from and writes
// ciphertext to the blob store registered for scheme, instead of the store the
// config was loaded from.
func (o *Orchestrator) WithDataScheme(scheme string) *Orchestrator {
	c := *o
	c.dataScheme = scheme
	return &c
}

// invocation carries the values produced by one run of the pipeline.
type invocation struct {
	log *slog.Logger

	path      ConfigPath
	dataStore interfaces.BlobStore
	config    *PipelineConfig

	publicKey string
	bucket    string
	recipient string

	plaintext  []byte
	ciphertext []byte
}

// withSecrets returns ctx carrying the secret values resolved so far, so that
// logs and errors produced under it never show them.
func (inv *invocation) withSecrets(ctx context.Context) context.Context {
	return common.WithRedactions(ctx, inv.publicKey, inv.bucket, inv.recipient)
}

// Run executes one invocation for confPath and returns its outcome. Stages
// run strictly in order and the first failure ends the invocation.
func (o *Orchestrator) Run(ctx context.Context, confPath string) Outcome {
	inv := &invocation{
		log: o.log.With("invocation_id", uuid.NewString()),
	}

	start := time.Now()
	inv.log.InfoContext(ctx, "Starting pipeline", slog.String("conf_path", confPath))

	err := o.run(ctx, inv, confPath)
	outcome := OutcomeFor(err)
	o.metrics.ObserveInvocation(string(outcome.Kind))

	ctx = inv.withSecrets(ctx)
	if err != nil {
		inv.log.ErrorContext(ctx, "Pipeline failed",
			slog.String("kind", string(outcome.Kind)),
			slog.String("stage", string(outcome.Stage)),
			slog.Int("status", outcome.Status),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return outcome
	}

	inv.log.InfoContext(ctx, "Pipeline completed",
		slog.String("destination", inv.config.DestinationKey()),
		slog.Int("ciphertext_size", len(inv.ciphertext)),
		slog.Duration("duration", time.Since(start)))
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, inv *invocation, confPath string) error {
	steps := []struct {
		stage Stage
		fn    func(context.Context, *invocation, string) error
	}{
		{StageParsingPath, o.parsePath},
		{StageLoadingConfig, o.loadConfig},
		{StageResolvingSecrets, o.resolveSecrets},
		{StageReadingSource, o.readSource},
		{StageEncrypting, o.encrypt},
		{StageWritingDestination, o.writeDestination},
	}

	for _, step := range steps {
		stepCtx := inv.withSecrets(ctx)
		started := time.Now()
		err := step.fn(stepCtx, inv, confPath)
		o.metrics.ObserveStage(string(step.stage), time.Since(started))
		if err != nil {
			return redact(inv.withSecrets(ctx), err)
		}
	}
	return nil
}

func (o *Orchestrator) parsePath(_ context.Context, inv *invocation, confPath string) error {
	path, err := ParsePath(confPath)
	if err != nil {
		return stageError(ConfigError, StageParsingPath, err, "")
	}
	inv.path = path
	return nil
}

func (o *Orchestrator) loadConfig(ctx context.Context, inv *invocation, _ string) error {
	store, err := o.stores.BlobStoreFor(inv.path.Scheme)
	if err != nil {
		return stageError(ConfigError, StageLoadingConfig, err, "no blob store for %s", inv.path.Scheme)
	}
	inv.dataStore = store
	if o.dataScheme != "" {
		dataStore, err := o.stores.BlobStoreFor(o.dataScheme)
		if err != nil {
			return stageError(ConfigError, StageLoadingConfig, err, "no blob store for data scheme %s", o.dataScheme)
		}
		inv.dataStore = dataStore
	}

	inv.log.InfoContext(ctx, "Reading config file", slog.String("location", inv.path.String()))

	data, err := store.Get(ctx, inv.path.Container, inv.path.Key)
	if err != nil {
		return stageError(ConfigError, StageLoadingConfig, err, "failed to read config file %s", inv.path)
	}

	cfg, err := ParseConfig(data, inv.path.Key)
	if err != nil {
		return stageError(ConfigError, StageLoadingConfig, err, "failed to parse config file %s", inv.path)
	}
	inv.config = cfg

	inv.log.InfoContext(ctx, "Successfully read config file", slog.String("location", inv.path.String()))
	return nil
}

func (o *Orchestrator) resolveSecrets(ctx context.Context, inv *invocation, _ string) error {
	secrets := []struct {
		id  string
		dst *string
	}{
		{inv.config.GPGPublicKey, &inv.publicKey},
		{inv.config.GCSBucket, &inv.bucket},
		{inv.config.RecipientName, &inv.recipient},
	}

	for _, s := range secrets {
		value, err := o.secrets.Resolve(ctx, s.id)
		if err != nil {
			return stageError(SecretError, StageResolvingSecrets, err, "failed to fetch secret %s", s.id)
		}
		*s.dst = value
	}
	return nil
}

func (o *Orchestrator) readSource(ctx context.Context, inv *invocation, _ string) error {
	key := inv.config.SourceKey()

	data, err := inv.dataStore.Get(ctx, inv.bucket, key)
	if err != nil {
		return stageError(TransferError, StageReadingSource, err, "failed to read file %s from bucket %s", key, inv.config.GCSBucket)
	}
	if !utf8.Valid(data) {
		return stageError(TransferError, StageReadingSource, errSourceNotText, "failed to read file %s from bucket %s", key, inv.config.GCSBucket)
	}
	inv.plaintext = data

	inv.log.InfoContext(ctx, "Successfully read file",
		slog.String("key", key),
		slog.String("bucket_secret", inv.config.GCSBucket),
		slog.Int("size", len(data)))
	return nil
}

func (o *Orchestrator) encrypt(ctx context.Context, inv *invocation, _ string) error {
	ciphertext, err := o.stage.Encrypt(ctx, inv.plaintext, inv.publicKey, inv.recipient)
	if err != nil {
		return stageError(EncryptionError, StageEncrypting, err, "failed to encrypt data")
	}
	inv.ciphertext = ciphertext
	o.metrics.ObserveCiphertext(len(ciphertext))

	inv.log.InfoContext(ctx, "Encryption successful")
	return nil
}

func (o *Orchestrator) writeDestination(ctx context.Context, inv *invocation, _ string) error {
	key := inv.config.DestinationKey()

	if err := inv.dataStore.Put(ctx, inv.bucket, key, inv.ciphertext, CiphertextContentType); err != nil {
		return stageError(TransferError, StageWritingDestination, err, "failed to upload %s to bucket %s", key, inv.config.GCSBucket)
	}

	inv.log.InfoContext(ctx, "Encrypted file stored",
		slog.String("bucket_secret", inv.config.GCSBucket),
		slog.String("key", key))
	return nil
}
