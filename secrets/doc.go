// Package secrets resolves secret identifiers to plaintext values.
//
// A Router dispatches each identifier to one backend by its scheme prefix:
//
//   - projects/<p>/secrets/<name> (or gcpsm://...) - Google Secret Manager, latest version
//   - vault://<mount>/<path>[#field] - HashiCorp Vault KV v2, latest version
//   - op://<vault>/<item>/<field> - 1Password service account
//   - k8s://[<namespace>/]<name>/<key> - Kubernetes Secret objects
//   - env://<NAME> - process environment
//
// Every Resolve call performs a single lookup. There is no caching and no
// retry; a failed lookup is returned to the caller, which decides whether to
// abort. The Router logs the identifier and backend of every lookup, never
// the resolved value.
package secrets
