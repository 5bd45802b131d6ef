package common

// PackageName identifies the service in integrations and logs.
const PackageName = "blob-encryption-service"

// Version is set at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"
