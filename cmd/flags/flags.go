package flags

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ruteri/blob-encryption-service/common"
	"github.com/ruteri/blob-encryption-service/httpserver"
	"github.com/ruteri/blob-encryption-service/interfaces"
	"github.com/ruteri/blob-encryption-service/metrics"
	"github.com/ruteri/blob-encryption-service/pipeline"
	"github.com/ruteri/blob-encryption-service/secrets"
	"github.com/ruteri/blob-encryption-service/storage"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	listenAddr := cCtx.String(ListenAddrFlag.Name)
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             5 * time.Minute,
	}
}

// BlobStores registers one blob store per --blob-backend URI.
func BlobStores(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (*storage.StorageBackendFactory, error) {
	factory := storage.NewStorageBackendFactory(logger)
	if err := factory.Configure(ctx, cCtx.StringSlice(BlobBackendFlag.Name)); err != nil {
		return nil, err
	}
	return factory, nil
}

// Orchestrator wires the pipeline over stores and resolver. With --data-backend
// set, sources and ciphertext go through that scheme's store.
func Orchestrator(cCtx *cli.Context, stores *storage.StorageBackendFactory, resolver interfaces.SecretResolver, engine interfaces.EncryptionEngine, m *metrics.PipelineMetrics, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	orchestrator := pipeline.NewOrchestrator(stores, resolver, engine, m, logger)

	dataScheme := cCtx.String(DataBackendFlag.Name)
	if dataScheme == "" {
		return orchestrator, nil
	}
	if _, err := stores.BlobStoreFor(dataScheme); err != nil {
		return nil, fmt.Errorf("data backend: %w", err)
	}
	logger.Info("Using dedicated data blob store", slog.String("scheme", dataScheme))
	return orchestrator.WithDataScheme(dataScheme), nil
}

// SecretRouter creates the backends enabled with --secret-backend and routes
// unprefixed identifiers to --secret-backend-default.
func SecretRouter(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (*secrets.Router, error) {
	router := secrets.NewRouter(logger)
	backends := make(map[string]interfaces.SecretBackend)

	for _, name := range cCtx.StringSlice(SecretBackendFlag.Name) {
		var (
			backend interfaces.SecretBackend
			err     error
		)

		switch name {
		case "gcpsm":
			backend, err = secrets.NewGCPSecretManager(ctx, logger)
		case "vault":
			backend, err = secrets.NewVaultBackend(cCtx.String(VaultAddrFlag.Name), cCtx.String(VaultTokenFlag.Name), cCtx.Duration(VaultTimeoutFlag.Name), logger)
		case "op":
			backend, err = secrets.NewOnePasswordBackend(ctx, cCtx.String(OnePasswordTokenFlag.Name), logger)
		case "k8s":
			backend, err = secrets.NewKubernetesBackendFromConfig(cCtx.String(KubeconfigFlag.Name), cCtx.String(K8sNamespaceFlag.Name), logger)
		case "env":
			backend = secrets.NewEnvBackend()
		default:
			return nil, fmt.Errorf("unknown secret backend %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s secret backend: %w", name, err)
		}

		logger.Info("Registered secret backend", slog.String("scheme", name), slog.String("backend", backend.Name()))
		router.Register(name, backend)
		backends[name] = backend
	}

	defaultName := cCtx.String(SecretBackendDefaultFlag.Name)
	if defaultName != "" {
		backend, ok := backends[defaultName]
		if !ok {
			return nil, fmt.Errorf("default secret backend %q is not enabled", defaultName)
		}
		router.SetDefault(backend)
	}

	return router, nil
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "0.0.0.0:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"LISTEN_ADDR"},
}

var BlobBackendFlag = &cli.StringSliceFlag{
	Name:    "blob-backend",
	Value:   cli.NewStringSlice("gs://"),
	Usage:   "blob store location URI, one per scheme (gs://, s3://[KEY:SECRET@]?region=..., file:///dir, ipfs://host:port/root, github://[TOKEN@]?ref=main)",
	EnvVars: []string{"BLOB_BACKENDS"},
}

var DataBackendFlag = &cli.StringFlag{
	Name:    "data-backend",
	Usage:   "scheme of the blob store holding source and encrypted files, defaults to the scheme of the config path",
	EnvVars: []string{"DATA_BACKEND"},
}

var SecretBackendFlag = &cli.StringSliceFlag{
	Name:    "secret-backend",
	Value:   cli.NewStringSlice("gcpsm"),
	Usage:   "secret backends to enable: gcpsm, vault, op, k8s, env (env exposes the process environment, local runs only)",
	EnvVars: []string{"SECRET_BACKENDS"},
}

var SecretBackendDefaultFlag = &cli.StringFlag{
	Name:    "secret-backend-default",
	Value:   "gcpsm",
	Usage:   "backend resolving secret ids without a scheme prefix",
	EnvVars: []string{"SECRET_BACKEND_DEFAULT"},
}

var VaultAddrFlag = &cli.StringFlag{
	Name:    "vault-addr",
	Usage:   "Vault server address",
	EnvVars: []string{"VAULT_ADDR"},
}

var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Usage:   "Vault token",
	EnvVars: []string{"VAULT_TOKEN"},
}

var VaultTimeoutFlag = &cli.DurationFlag{
	Name:  "vault-timeout",
	Usage: "Vault request timeout, requests only end with the invocation when unset",
}

var OnePasswordTokenFlag = &cli.StringFlag{
	Name:    "op-token",
	Usage:   "1Password service account token",
	EnvVars: []string{"OP_SERVICE_ACCOUNT_TOKEN"},
}

var K8sNamespaceFlag = &cli.StringFlag{
	Name:    "k8s-namespace",
	Value:   "default",
	Usage:   "namespace for k8s:// secret ids without one",
	EnvVars: []string{"K8S_NAMESPACE"},
}

var KubeconfigFlag = &cli.StringFlag{
	Name:    "kubeconfig",
	Usage:   "kubeconfig path, in-cluster config when empty",
	EnvVars: []string{"KUBECONFIG"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var BackendFlags = []cli.Flag{
	BlobBackendFlag,
	DataBackendFlag,
	SecretBackendFlag,
	SecretBackendDefaultFlag,
	VaultAddrFlag,
	VaultTokenFlag,
	VaultTimeoutFlag,
	OnePasswordTokenFlag,
	K8sNamespaceFlag,
	KubeconfigFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
