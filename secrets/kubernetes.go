package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/ruteri/blob-encryption-service/interfaces"
)

// KubernetesSchemePrefix marks identifiers served by KubernetesBackend.
const KubernetesSchemePrefix = "k8s://"

// KubernetesBackend resolves keys of Kubernetes Secret objects.
//
// Identifier format: k8s://[<namespace>/]<name>/<key>
// When the namespace is omitted the backend's default namespace is used.
type KubernetesBackend struct {
	clientset        kubernetes.Interface
	defaultNamespace string
	log              *slog.Logger
}

// NewKubernetesBackend wraps an existing clientset.
func NewKubernetesBackend(clientset kubernetes.Interface, defaultNamespace string, log *slog.Logger) *KubernetesBackend {
	if defaultNamespace == "" {
		defaultNamespace = "default"
	}
	return &KubernetesBackend{
		clientset:        clientset,
		defaultNamespace: defaultNamespace,
		log:              log,
	}
}

// NewKubernetesBackendFromConfig builds a clientset from kubeconfigPath, or from
// the in-cluster service account when kubeconfigPath is empty.
func NewKubernetesBackendFromConfig(kubeconfigPath, defaultNamespace string, log *slog.Logger) (*KubernetesBackend, error) {
	var (
		config *rest.Config
		err    error
	)
	if kubeconfigPath != "" {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	} else {
		config, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return NewKubernetesBackend(clientset, defaultNamespace, log), nil
}

// Resolve reads one key from a Secret object.
func (b *KubernetesBackend) Resolve(ctx context.Context, secretID string) (string, error) {
	namespace, name, key, err := b.parseID(secretID)
	if err != nil {
		return "", err
	}

	secret, err := b.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", fmt.Errorf("%w: secret %s/%s", interfaces.ErrSecretNotFound, namespace, name)
		}
		return "", fmt.Errorf("failed to get secret: %w", err)
	}

	if value, ok := secret.Data[key]; ok {
		return string(value), nil
	}
	if value, ok := secret.StringData[key]; ok {
		return value, nil
	}

	return "", fmt.Errorf("%w: key %q not present in secret %s/%s", interfaces.ErrSecretNotFound, key, namespace, name)
}

// Name returns identifier for logging.
func (b *KubernetesBackend) Name() string {
	return "kubernetes"
}

func (b *KubernetesBackend) parseID(secretID string) (namespace, name, key string, err error) {
	ref, ok := strings.CutPrefix(secretID, KubernetesSchemePrefix)
	if !ok {
		return "", "", "", fmt.Errorf("%w: %q is not a k8s:// identifier", interfaces.ErrInvalidSecretID, secretID)
	}

	parts := strings.Split(strings.Trim(ref, "/"), "/")
	for _, part := range parts {
		if part == "" {
			return "", "", "", fmt.Errorf("%w: empty segment in %q", interfaces.ErrInvalidSecretID, secretID)
		}
	}

	switch len(parts) {
	case 2:
		return b.defaultNamespace, parts[0], parts[1], nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("%w: expected k8s://[<namespace>/]<name>/<key>, got %q", interfaces.ErrInvalidSecretID, secretID)
	}
}
