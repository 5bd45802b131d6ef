// Package storage provides path-addressed blob stores with pluggable backends.
//
// The storage package offers a unified interface for reading and writing whole
// objects identified by (container, key) across multiple backends:
//
//   - Google Cloud Storage, the default for gs:// configuration paths
//   - S3-compatible storage for AWS deployments
//   - File system storage for local development and testing
//   - IPFS mutable file system storage
//   - GitHub repository contents (read-only)
//
// # Backend URI Format
//
// Backends are configured using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Examples:
//
//   - gs://
//   - gs://?endpoint=http://localhost:4443/storage/v1/&no_auth=true
//   - s3://?region=us-west-2
//   - s3://AKIA...:secret@?region=eu-central-1&endpoint=minio.local:9000
//   - file:///var/lib/blob-encryption/
//   - ipfs://127.0.0.1:5001/encryption?timeout=30s
//   - github://ghp_token@?ref=main
//
// StorageBackendFactory registers one store per scheme; the pipeline resolves
// the store for a configuration path by the path's scheme.
//
// # Whole-Object Semantics
//
// Get returns the complete object and Put replaces the complete object. There
// are no ranged reads, appends, or resumable uploads. Put implementations only
// make the object visible once all bytes are accepted (GCS writer close, S3
// PutObject, file rename), so a failed write never leaves a truncated object.
//
// # Errors
//
// Missing objects are reported as interfaces.ErrObjectNotFound (wrapped with
// the location). Writes to read-only backends fail with
// interfaces.ErrReadOnlyBackend.
package storage
