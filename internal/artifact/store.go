package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/ai4/internal/model"
	"github.com/GriffinCanCode/ai4/internal/shared/utils"
)

const (
	// ManifestFile holds the JSON metadata of an artifact.
	ManifestFile = "manifest.json"

	// WeightsFile holds the serialized parameters.
	WeightsFile = "weights.tar.zst"

	// Version is the semantic version stamped on every new artifact.
	Version = "0.1.0"

	// HashLength is the number of hex characters kept from the SHA-256 digest.
	HashLength = 16
)

var hasher = utils.DefaultHasher()

// now is swapped in tests that need a fixed creation time.
var now = time.Now

// Save writes the model parameters and a manifest into dir, creating it if
// needed. The manifest starts as {name, version, created} with name taken
// from the last path component of dir; extra is merged over it and wins on
// key collision. Files are overwritten in place, so a crash mid-write leaves
// a partial artifact.
func Save(m *model.Model, dir string, extra Fields) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := writeWeights(filepath.Join(dir, WeightsFile), m); err != nil {
		return "", err
	}

	manifest := NewManifest(baseName(dir), now())
	manifest.Merge(extra)
	if err := WriteManifest(dir, manifest); err != nil {
		return "", err
	}
	return dir, nil
}

// SaveHashed saves like Save, then hashes the artifact and rewrites the
// manifest with the hash recorded under "hash". The stored hash therefore
// fingerprints the manifest as it was before stamping, and Hash(dir) on the
// finished artifact returns a different value.
func SaveHashed(m *model.Model, dir string, extra Fields) (string, string, error) {
	if _, err := Save(m, dir, extra); err != nil {
		return "", "", err
	}
	h, err := Stamp(dir)
	if err != nil {
		return "", "", err
	}
	return dir, h, nil
}

// Stamp hashes the artifact as it is on disk and records the value in its
// manifest.
func Stamp(dir string) (string, error) {
	h, err := Hash(dir)
	if err != nil {
		return "", err
	}
	manifest, err := ReadManifest(dir)
	if err != nil {
		return "", err
	}
	manifest.Set(KeyHash, h)
	if err := WriteManifest(dir, manifest); err != nil {
		return "", err
	}
	return h, nil
}

// Load reconstructs the model stored in dir. Both files must exist and be
// readable regular files; the manifest is not consulted for shapes.
func Load(dir string) (*model.Model, error) {
	if err := checkManifest(filepath.Join(dir, ManifestFile)); err != nil {
		return nil, err
	}
	return readWeights(filepath.Join(dir, WeightsFile))
}

func checkManifest(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s: %v", ErrArtifactNotFound, path, err)
		}
		return fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrMalformedArtifact, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, path, err)
	}
	return f.Close()
}

// Hash returns the first HashLength hex characters of SHA-256 over the
// manifest bytes followed by the weights bytes.
func Hash(dir string) (string, error) {
	digest, err := hasher.HashFiles(
		filepath.Join(dir, ManifestFile),
		filepath.Join(dir, WeightsFile),
	)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %v", ErrArtifactNotFound, err)
		}
		return "", fmt.Errorf("%w: failed to hash artifact: %v", ErrMalformedArtifact, err)
	}
	return utils.Short(digest, HashLength), nil
}

// Complete reports whether dir holds both artifact files.
func Complete(dir string) bool {
	for _, name := range []string{ManifestFile, WeightsFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

func baseName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Base(dir)
	}
	return filepath.Base(abs)
}
