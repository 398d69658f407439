package artifact

import "errors"

// Sentinel errors for artifact operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrArtifactNotFound indicates the directory lacks the manifest or the weights file.
	ErrArtifactNotFound = errors.New("artifact: not found")

	// ErrMalformedArtifact indicates a file exists but cannot be decoded.
	ErrMalformedArtifact = errors.New("artifact: malformed")
)
