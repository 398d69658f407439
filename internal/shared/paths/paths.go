package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultHome is the base directory used when AI4_HOME is unset.
const DefaultHome = "~/.ai4"

// Files and directories inside the base directory
const (
	RegistryFile = "registry.json"
	LedgerFile   = "ledger.json"
	ArtifactsDir = "artifacts"
)

// Layout resolves the files kept under one base directory
type Layout struct {
	Home string
}

// NewLayout expands home and returns its layout
func NewLayout(home string) (Layout, error) {
	expanded, err := Expand(home)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Home: expanded}, nil
}

// Registry returns the registry document path
func (l Layout) Registry() string {
	return filepath.Join(l.Home, RegistryFile)
}

// Ledger returns the ledger document path
func (l Layout) Ledger() string {
	return filepath.Join(l.Home, LedgerFile)
}

// Artifacts returns the default directory for trained artifacts
func (l Layout) Artifacts() string {
	return filepath.Join(l.Home, ArtifactsDir)
}

// Ensure creates the base directory
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.Home, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", l.Home, err)
	}
	return nil
}

// Expand replaces a leading ~ with the user's home directory
func Expand(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ValidateName checks that a model name can be used as a directory name
// and inside a mat:// URI
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\@") {
		return fmt.Errorf("name %q contains a path separator or @", name)
	}
	if filepath.Clean(name) != name || name == "." || name == ".." {
		return fmt.Errorf("name %q contains invalid path components", name)
	}
	return nil
}
