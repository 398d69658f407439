package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ai4/internal/artifact"
)

// Seeder deploys every artifact found under a directory tree
type Seeder struct {
	manager *Manager
	logger  *zap.Logger
}

// SeedReport lists the outcome of a seeding pass
type SeedReport struct {
	Deployed []Record
	Failed   map[string]error
}

// NewSeeder creates a new artifact seeder
func NewSeeder(manager *Manager) *Seeder {
	return &Seeder{
		manager: manager,
		logger:  manager.logger,
	}
}

// Seed walks root and deploys each complete artifact directory whose path
// relative to root matches pattern (doublestar syntax, empty matches all).
// Artifacts are named after their directory and deployed one at a time in
// lexical path order.
func (s *Seeder) Seed(root, pattern string) (*SeedReport, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	dirs, err := s.discover(root, pattern)
	if err != nil {
		return nil, err
	}

	report := &SeedReport{Failed: make(map[string]error)}
	for _, dir := range dirs {
		name := filepath.Base(dir)
		uri, err := s.manager.Deploy(dir, name)
		if err != nil {
			s.logger.Warn("failed to deploy artifact", zap.String("dir", dir), zap.Error(err))
			report.Failed[dir] = err
			continue
		}
		e, err := s.manager.Lookup(uri)
		if err != nil {
			report.Failed[dir] = err
			continue
		}
		report.Deployed = append(report.Deployed, Record{URI: uri, Entry: e})
	}

	s.logger.Info("seeding complete",
		zap.String("root", root),
		zap.Int("deployed", len(report.Deployed)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// discover returns the sorted artifact directories under root.
func (s *Seeder) discover(root, pattern string) ([]string, error) {
	var (
		mu   sync.Mutex
		dirs []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != artifact.ManifestFile {
			return nil
		}

		dir := filepath.Dir(p)
		if !artifact.Complete(dir) {
			return nil
		}
		if pattern != "" {
			rel, err := filepath.Rel(root, dir)
			if err != nil {
				return nil
			}
			ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel))
			if !ok {
				return nil
			}
		}

		mu.Lock()
		dirs = append(dirs, dir)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(dirs)
	return dirs, nil
}
