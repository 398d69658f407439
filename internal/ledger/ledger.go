package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ai4/internal/shared/paths"
)

const (
	// Symbol is the ticker of the model access token.
	Symbol = "AI4"

	// FileName is the ledger document inside the base directory.
	FileName = paths.LedgerFile
)

var (
	// ErrInsufficientBalance is returned when a burn or transfer exceeds the
	// available balance. Nothing is written in that case.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInvalidAmount is returned for negative or overflowing amounts.
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrInvalidIdentity is returned for empty identities.
	ErrInvalidIdentity = errors.New("ledger: invalid identity")
)

// Holding is one identity and its balance.
type Holding struct {
	Who     string `json:"who" yaml:"who"`
	Balance int64  `json:"balance" yaml:"balance"`
}

// Ledger tracks MAT balances in a single JSON object mapping identity to
// integer balance. Like the registry it reads and rewrites the whole
// document on every call and takes no lock.
type Ledger struct {
	path   string
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(lg *Ledger) { lg.logger = l }
}

// New creates a ledger stored in baseDir, creating the directory if needed.
func New(baseDir string, opts ...Option) (*Ledger, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	l := &Ledger{
		path:   filepath.Join(baseDir, FileName),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the ledger document location.
func (l *Ledger) Path() string {
	return l.path
}

// Mint credits amount new tokens to an identity.
func (l *Ledger) Mint(to string, amount int64) error {
	if err := checkArgs(amount, to); err != nil {
		return err
	}
	state, err := l.read()
	if err != nil {
		return err
	}
	supply, err := total(state)
	if err != nil {
		return err
	}
	if supply > math.MaxInt64-amount {
		return fmt.Errorf("%w: minting %d to %s overflows the supply", ErrInvalidAmount, amount, to)
	}
	state[to] += amount
	if err := l.write(state); err != nil {
		return err
	}
	l.logger.Info("minted", zap.String("to", to), zap.Int64("amount", amount))
	return nil
}

// Burn destroys amount tokens held by an identity.
func (l *Ledger) Burn(who string, amount int64) error {
	if err := checkArgs(amount, who); err != nil {
		return err
	}
	state, err := l.read()
	if err != nil {
		return err
	}
	if state[who] < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientBalance, who, state[who], amount)
	}
	state[who] -= amount
	if err := l.write(state); err != nil {
		return err
	}
	l.logger.Info("burned", zap.String("from", who), zap.Int64("amount", amount))
	return nil
}

// Transfer moves amount tokens between identities. Total supply is unchanged.
func (l *Ledger) Transfer(from, to string, amount int64) error {
	if err := checkArgs(amount, from, to); err != nil {
		return err
	}
	state, err := l.read()
	if err != nil {
		return err
	}
	if state[from] < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientBalance, from, state[from], amount)
	}
	state[from] -= amount
	if state[to] > math.MaxInt64-amount {
		return fmt.Errorf("%w: transfer to %s overflows", ErrInvalidAmount, to)
	}
	state[to] += amount
	if err := l.write(state); err != nil {
		return err
	}
	l.logger.Info("transferred",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int64("amount", amount))
	return nil
}

// BalanceOf returns the balance of an identity, zero if it never held any.
func (l *Ledger) BalanceOf(who string) (int64, error) {
	state, err := l.read()
	if err != nil {
		return 0, err
	}
	return state[who], nil
}

// Balances returns every holding sorted by identity.
func (l *Ledger) Balances() ([]Holding, error) {
	state, err := l.read()
	if err != nil {
		return nil, err
	}
	holdings := make([]Holding, 0, len(state))
	for who, bal := range state {
		holdings = append(holdings, Holding{Who: who, Balance: bal})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Who < holdings[j].Who })
	return holdings, nil
}

// Supply returns the sum of all balances.
func (l *Ledger) Supply() (int64, error) {
	state, err := l.read()
	if err != nil {
		return 0, err
	}
	return total(state)
}

// total sums the balances, failing instead of wrapping around. Mint keeps
// the supply within int64, so only a hand-edited file can overflow.
func total(state map[string]int64) (int64, error) {
	var sum int64
	for who, bal := range state {
		if bal > 0 && sum > math.MaxInt64-bal {
			return 0, fmt.Errorf("%w: supply overflows at %s", ErrInvalidAmount, who)
		}
		sum += bal
	}
	return sum, nil
}

func checkArgs(amount int64, identities ...string) error {
	if amount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	for _, who := range identities {
		if strings.TrimSpace(who) == "" {
			return ErrInvalidIdentity
		}
	}
	return nil
}

// read loads the whole document. A missing or malformed file is an empty
// ledger.
func (l *Ledger) read() (map[string]int64, error) {
	state := make(map[string]int64)
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if err := sonic.ConfigStd.Unmarshal(data, &state); err != nil || state == nil {
		l.logger.Warn("ledger file is malformed, treating as empty",
			zap.String("path", l.path),
			zap.Error(err))
		return make(map[string]int64), nil
	}
	return state, nil
}

// write rewrites the whole document with identities in sorted order.
func (l *Ledger) write(state map[string]int64) error {
	data, err := sonic.ConfigStd.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}
