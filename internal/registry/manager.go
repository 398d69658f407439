package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/GriffinCanCode/ai4/internal/artifact"
	"github.com/GriffinCanCode/ai4/internal/shared/paths"
	"github.com/GriffinCanCode/ai4/internal/shared/utils"
)

const (
	// FileName is the registry document inside the base directory.
	FileName = paths.RegistryFile

	// Scheme and Namespace form the URI prefix mat://ai4/.
	Scheme    = "mat://"
	Namespace = "ai4"
)

var (
	// ErrUnknownURI is returned for lookups of URIs that were never deployed.
	ErrUnknownURI = errors.New("registry: unknown model URI")

	// ErrInvalidName is returned when deploying under a name that is empty or
	// cannot appear in a URI.
	ErrInvalidName = errors.New("registry: invalid model name")
)

// Entry is the registry record of one deployed artifact.
type Entry struct {
	Name     string `json:"name" yaml:"name"`
	Artifact string `json:"artifact" yaml:"artifact"`
	Hash     string `json:"hash" yaml:"hash"`
	Calls    int64  `json:"calls" yaml:"calls"`
}

// Record pairs an entry with its URI.
type Record struct {
	URI   string `json:"uri" yaml:"uri"`
	Entry `yaml:",inline"`
}

// Stats summarizes the registry contents.
type Stats struct {
	TotalModels int   `json:"total_models"`
	TotalCalls  int64 `json:"total_calls"`
}

// modelsKey is the top-level key holding the entries.
const modelsKey = "models"

// document is the registry file. Top-level keys other than "models" are
// carried through rewrites untouched, in their original position.
type document struct {
	Models utils.OrderedMap[Entry]
	fields utils.OrderedMap[json.RawMessage]
}

// MarshalJSON implements json.Marshaler.
func (d *document) MarshalJSON() ([]byte, error) {
	models, err := json.Marshal(d.Models)
	if err != nil {
		return nil, err
	}
	d.fields.Set(modelsKey, models)
	return json.Marshal(d.fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *document) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &d.fields); err != nil {
		return err
	}
	raw, ok := d.fields.Get(modelsKey)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, &d.Models); err != nil {
		return fmt.Errorf("failed to decode %s: %w", modelsKey, err)
	}
	return nil
}

// Manager handles the JSON-backed model registry. Every operation reads the
// whole document, mutates it and rewrites it; nothing is cached between
// calls and no file lock is taken, so concurrent processes can lose updates.
type Manager struct {
	path   string
	logger *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a registry stored in baseDir, creating the directory if
// needed. The document itself is created on the first write.
func NewManager(baseDir string, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	m := &Manager{
		path:   filepath.Join(baseDir, FileName),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Path returns the registry document location.
func (m *Manager) Path() string {
	return m.path
}

// URI builds the deterministic identifier of an artifact deployed under name.
func URI(name, hash string) string {
	return fmt.Sprintf("%s%s/%s@%s", Scheme, Namespace, name, hash)
}

// Deploy registers the artifact in dir under name and returns its URI. The
// artifact must load. Deploying the same artifact under the same name again
// yields the same URI and overwrites the entry, which resets its call count
// to zero. A changed artifact hashes differently and gets a new entry next to
// the old one.
func (m *Manager) Deploy(dir, name string) (string, error) {
	if err := paths.ValidateName(name); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	doc, err := m.load()
	if err != nil {
		return "", err
	}

	if _, err := artifact.Load(dir); err != nil {
		return "", fmt.Errorf("failed to load artifact: %w", err)
	}
	hash, err := artifact.Hash(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve artifact path: %w", err)
	}

	uri := URI(name, hash)
	if prev, ok := doc.Models.Get(uri); ok && prev.Calls > 0 {
		m.logger.Warn("redeploy resets call count",
			zap.String("uri", uri),
			zap.Int64("calls", prev.Calls))
	}
	doc.Models.Set(uri, Entry{
		Name:     name,
		Artifact: abs,
		Hash:     hash,
		Calls:    0,
	})

	if err := m.save(doc); err != nil {
		return "", err
	}

	m.logger.Info("model deployed",
		zap.String("uri", uri),
		zap.String("artifact", abs))
	return uri, nil
}

// List returns the registered URIs in document order.
func (m *Manager) List() ([]string, error) {
	doc, err := m.load()
	if err != nil {
		return nil, err
	}
	return doc.Models.Keys(), nil
}

// Records returns every entry with its URI, in document order.
func (m *Manager) Records() ([]Record, error) {
	doc, err := m.load()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, doc.Models.Len())
	for _, uri := range doc.Models.Keys() {
		e, _ := doc.Models.Get(uri)
		records = append(records, Record{URI: uri, Entry: e})
	}
	return records, nil
}

// Lookup returns the entry registered under uri.
func (m *Manager) Lookup(uri string) (Entry, error) {
	doc, err := m.load()
	if err != nil {
		return Entry{}, err
	}
	e, ok := doc.Models.Get(uri)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownURI, uri)
	}
	return e, nil
}

// Infer runs the model registered under uri on a single scalar input and
// increments its call count. Unknown URIs and unloadable artifacts fail
// before anything is written.
func (m *Manager) Infer(uri string, x float64) (float64, error) {
	doc, err := m.load()
	if err != nil {
		return 0, err
	}
	e, ok := doc.Models.Get(uri)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownURI, uri)
	}

	model, err := artifact.Load(e.Artifact)
	if err != nil {
		return 0, fmt.Errorf("failed to load %s: %w", uri, err)
	}
	if model.InputDim() != 1 || model.OutputDim() != 1 {
		return 0, fmt.Errorf("%w: %s expects %d inputs and %d outputs",
			artifact.ErrMalformedArtifact, uri, model.InputDim(), model.OutputDim())
	}

	y := model.Forward(mat.NewDense(1, 1, []float64{x})).At(0, 0)

	e.Calls++
	doc.Models.Set(uri, e)
	if err := m.save(doc); err != nil {
		return 0, err
	}

	m.logger.Debug("inference",
		zap.String("uri", uri),
		zap.Float64("input", x),
		zap.Float64("output", y),
		zap.Int64("calls", e.Calls))
	return y, nil
}

// Stats returns registry statistics.
func (m *Manager) Stats() (Stats, error) {
	doc, err := m.load()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{TotalModels: doc.Models.Len()}
	for _, uri := range doc.Models.Keys() {
		e, _ := doc.Models.Get(uri)
		stats.TotalCalls += e.Calls
	}
	return stats, nil
}

// load reads the whole document. A missing file is an empty registry; so is
// a file that fails to parse.
func (m *Manager) load() (*document, error) {
	doc := &document{}
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		m.logger.Warn("registry file is malformed, treating as empty",
			zap.String("path", m.path),
			zap.Error(err))
		return &document{}, nil
	}
	return doc, nil
}

// save rewrites the whole document.
func (m *Manager) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}
