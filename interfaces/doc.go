// Package interfaces defines core interfaces and types for the blob encryption
// service, separating interface definitions from implementations.
//
// The package provides interfaces for the external collaborators of the pipeline:
//
// # Storage Interfaces
//
// BlobStore: Path-addressed, whole-object storage (get/put by container and key)
// across multiple backend types (GCS, S3, file, IPFS, GitHub).
//
// BlobStoreFactory: Resolves blob stores by URI scheme.
//
// # Secret Interfaces
//
// SecretResolver: Maps a secret identifier to the plaintext of its latest version.
//
// SecretBackend: A SecretResolver bound to one store (Secret Manager, Vault,
// 1Password, Kubernetes, environment).
//
// # Encryption Interfaces
//
// EncryptionEngine: The OpenPGP capability. Imports public key material and
// encrypts for named recipients, reporting success and diagnostics through
// EncryptResult.
package interfaces
