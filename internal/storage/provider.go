package storage

import "mixer/internal/ports"

// Provider is the publishing contract used by the API and the CLI.
type Provider = ports.StorageProvider
