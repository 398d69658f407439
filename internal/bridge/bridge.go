package bridge

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ai4/internal/ledger"
	"github.com/GriffinCanCode/ai4/internal/monitoring"
	"github.com/GriffinCanCode/ai4/internal/registry"
	"github.com/GriffinCanCode/ai4/internal/shared/id"
)

// Receipt describes one paid inference.
type Receipt struct {
	ID      string  `json:"id" yaml:"id"`
	URI     string  `json:"uri" yaml:"uri"`
	Input   float64 `json:"input" yaml:"input"`
	Output  float64 `json:"output" yaml:"output"`
	Payer   string  `json:"payer" yaml:"payer"`
	Cost    int64   `json:"cost" yaml:"cost"`
	Balance int64   `json:"balance" yaml:"balance"`
}

// Finite reports whether the model output can be represented in JSON.
func (r Receipt) Finite() bool {
	return !math.IsNaN(r.Output) && !math.IsInf(r.Output, 0)
}

// Bridge meters access to deployed models: every inference is paid for in
// MAT before the model runs.
type Bridge struct {
	registry *registry.Manager
	ledger   *ledger.Ledger
	metrics  *monitoring.Metrics
	ids      *id.Generator
	logger   *zap.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithMetrics records store timings and inference outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithIDGenerator sets the source of receipt IDs.
func WithIDGenerator(g *id.Generator) Option {
	return func(b *Bridge) { b.ids = g }
}

// New creates a bridge over a registry and a ledger.
func New(reg *registry.Manager, led *ledger.Ledger, opts ...Option) *Bridge {
	b := &Bridge{
		registry: reg,
		ledger:   led,
		ids:      id.Default(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Registry returns the underlying registry.
func (b *Bridge) Registry() *registry.Manager {
	return b.registry
}

// Ledger returns the underlying ledger.
func (b *Bridge) Ledger() *ledger.Ledger {
	return b.ledger
}

// Deploy registers an artifact directory under name.
func (b *Bridge) Deploy(dir, name string) (string, error) {
	timer := b.timer("registry", "deploy")
	uri, err := b.registry.Deploy(dir, name)
	timer.stop(err)
	if err == nil {
		b.refreshModels()
	}
	return uri, err
}

// List returns the deployed URIs in deploy order.
func (b *Bridge) List() ([]string, error) {
	timer := b.timer("registry", "list")
	uris, err := b.registry.List()
	timer.stop(err)
	return uris, err
}

// Models returns every registry record in deploy order.
func (b *Bridge) Models() ([]registry.Record, error) {
	timer := b.timer("registry", "records")
	records, err := b.registry.Records()
	timer.stop(err)
	if err == nil && b.metrics != nil {
		b.metrics.SetRegistryModels(len(records))
	}
	return records, err
}

// Balance returns the MAT balance of an identity.
func (b *Bridge) Balance(who string) (int64, error) {
	timer := b.timer("ledger", "balance")
	bal, err := b.ledger.BalanceOf(who)
	timer.stop(err)
	return bal, err
}

// Infer charges payer cost MAT and runs the model registered under uri.
//
// The URI is resolved first, so an unknown model costs nothing. The charge
// is a burn, which refuses overdrafts without touching the ledger. If the
// model then fails to run, the charge is minted back to the payer.
func (b *Bridge) Infer(uri string, x float64, payer string, cost int64) (*Receipt, error) {
	if cost < 0 {
		return nil, fmt.Errorf("%w: cost %d", ledger.ErrInvalidAmount, cost)
	}

	if _, err := b.registry.Lookup(uri); err != nil {
		b.recordInference(err, 0)
		return nil, err
	}

	timer := b.timer("ledger", "burn")
	err := b.ledger.Burn(payer, cost)
	timer.stop(err)
	if err != nil {
		b.recordInference(err, 0)
		return nil, err
	}

	timer = b.timer("registry", "infer")
	y, err := b.registry.Infer(uri, x)
	timer.stop(err)
	if err != nil {
		if refundErr := b.ledger.Mint(payer, cost); refundErr != nil {
			b.logger.Error("refund failed",
				zap.String("payer", payer),
				zap.Int64("amount", cost),
				zap.Error(refundErr))
			err = errors.Join(err, fmt.Errorf("refund failed: %w", refundErr))
		} else if b.metrics != nil {
			b.metrics.RecordRefund(cost)
		}
		b.recordInference(err, 0)
		return nil, err
	}

	bal, err := b.ledger.BalanceOf(payer)
	if err != nil {
		return nil, err
	}

	receiptID := b.ids.NewReceiptID()
	b.recordInference(nil, cost)
	b.logger.Info("inference",
		zap.String("receipt", receiptID.String()),
		zap.String("uri", uri),
		zap.String("payer", payer),
		zap.Int64("cost", cost),
		zap.Float64("output", y))

	return &Receipt{
		ID:      receiptID.String(),
		URI:     uri,
		Input:   x,
		Output:  y,
		Payer:   payer,
		Cost:    cost,
		Balance: bal,
	}, nil
}

// Status classifies an inference error for metrics and HTTP responses.
func Status(err error) string {
	switch {
	case err == nil:
		return monitoring.StatusOK
	case errors.Is(err, registry.ErrUnknownURI):
		return monitoring.StatusUnknownURI
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return monitoring.StatusInsufficientBalance
	default:
		return monitoring.StatusError
	}
}

func (b *Bridge) recordInference(err error, spent int64) {
	if b.metrics != nil {
		b.metrics.RecordInference(Status(err), spent)
	}
}

func (b *Bridge) refreshModels() {
	if b.metrics == nil {
		return
	}
	if stats, err := b.registry.Stats(); err == nil {
		b.metrics.SetRegistryModels(stats.TotalModels)
	}
}

// storeTimer is a monitoring.Timer that tolerates a nil collector.
type storeTimer struct {
	t *monitoring.Timer
}

func (b *Bridge) timer(service, method string) storeTimer {
	if b.metrics == nil {
		return storeTimer{}
	}
	return storeTimer{t: monitoring.NewTimer(b.metrics, service, method)}
}

func (s storeTimer) stop(err error) {
	if s.t != nil {
		s.t.StopErr(err)
	}
}
