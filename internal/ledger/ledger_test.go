package ledger

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	l, err := New(filepath.Join(t.TempDir(), "home"), opts...)
	require.NoError(t, err)
	return l
}

func TestMintThenBalance(t *testing.T) {
	l := newLedger(t)

	require.NoError(t, l.Mint("tester", 2))
	bal, err := l.BalanceOf("tester")
	require.NoError(t, err)
	assert.Equal(t, int64(2), bal)

	bal, err = l.BalanceOf("nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
}

func TestStateIsSharedThroughTheFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	a, err := New(dir)
	require.NoError(t, err)
	b, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, a.Mint("you", 3))
	require.NoError(t, b.Burn("you", 1))

	bal, err := a.BalanceOf("you")
	require.NoError(t, err)
	assert.Equal(t, int64(2), bal)
}

func TestDocumentFormat(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint("zed", 1))
	require.NoError(t, l.Mint("amy", 3))

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"amy": 3, "zed": 1}`, string(data))
	assert.Contains(t, string(data), "\n  \"amy\": 3")
	assert.Less(t, strings.Index(string(data), "amy"), strings.Index(string(data), "zed"))
}

func TestBurnOverdrawLeavesFileUntouched(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint("you", 1))
	before, err := os.ReadFile(l.Path())
	require.NoError(t, err)

	err = l.Burn("you", 2)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	err = l.Transfer("you", "them", 5)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	err = l.Burn("ghost", 1)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	after, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTransfer(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint("alice", 10))
	require.NoError(t, l.Transfer("alice", "bob", 4))
	require.NoError(t, l.Transfer("bob", "bob", 4))

	holdings, err := l.Balances()
	require.NoError(t, err)
	assert.Equal(t, []Holding{{Who: "alice", Balance: 6}, {Who: "bob", Balance: 4}}, holdings)

	supply, err := l.Supply()
	require.NoError(t, err)
	assert.Equal(t, int64(10), supply)
}

func TestInvalidArguments(t *testing.T) {
	l := newLedger(t)

	assert.ErrorIs(t, l.Mint("you", -1), ErrInvalidAmount)
	assert.ErrorIs(t, l.Burn("you", -1), ErrInvalidAmount)
	assert.ErrorIs(t, l.Transfer("you", "them", -1), ErrInvalidAmount)
	assert.ErrorIs(t, l.Mint("", 1), ErrInvalidIdentity)
	assert.ErrorIs(t, l.Transfer("you", " ", 0), ErrInvalidIdentity)

	require.NoError(t, l.Mint("whale", math.MaxInt64))
	assert.ErrorIs(t, l.Mint("whale", 1), ErrInvalidAmount)

	_, statErr := os.Stat(l.Path())
	require.NoError(t, statErr)
	bal, err := l.BalanceOf("whale")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), bal)
}

func TestSupplyNeverOverflows(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Mint("a", math.MaxInt64))
	assert.ErrorIs(t, l.Mint("b", 1), ErrInvalidAmount, "a second holder cannot push the supply past int64")

	supply, err := l.Supply()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), supply)

	bal, err := l.BalanceOf("b")
	require.NoError(t, err)
	assert.Zero(t, bal)

	require.NoError(t, os.WriteFile(l.Path(), []byte(`{"a": 9223372036854775807, "b": 1}`), 0o644))
	_, err = l.Supply()
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.ErrorIs(t, l.Mint("c", 1), ErrInvalidAmount)
}

func TestMalformedLedgerIsEmpty(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := newLedger(t, WithLogger(zap.New(core)))

	for _, doc := range []string{"{oops", "[1,2]", `{"you": 1.5}`, "null"} {
		require.NoError(t, os.WriteFile(l.Path(), []byte(doc), 0o644))
		bal, err := l.BalanceOf("you")
		require.NoError(t, err, doc)
		assert.Equal(t, int64(0), bal, doc)
	}
	assert.Equal(t, 4, logs.FilterMessage("ledger file is malformed, treating as empty").Len())

	require.NoError(t, l.Mint("you", 2))
	bal, err := l.BalanceOf("you")
	require.NoError(t, err)
	assert.Equal(t, int64(2), bal)
}

func TestSupplyIsMintedMinusBurned(t *testing.T) {
	l := newLedger(t)
	rng := rand.New(rand.NewPCG(7, 7))
	who := []string{"a", "b", "c", "d"}

	var minted, burned int64
	for i := 0; i < 200; i++ {
		x := who[rng.IntN(len(who))]
		amount := int64(rng.IntN(10))
		bal, err := l.BalanceOf(x)
		require.NoError(t, err)

		switch rng.IntN(3) {
		case 0:
			require.NoError(t, l.Mint(x, amount))
			minted += amount
		case 1:
			if amount > bal {
				amount = bal
			}
			require.NoError(t, l.Burn(x, amount))
			burned += amount
		default:
			if amount > bal {
				amount = bal
			}
			require.NoError(t, l.Transfer(x, who[rng.IntN(len(who))], amount))
		}

		supply, err := l.Supply()
		require.NoError(t, err)
		require.Equal(t, minted-burned, supply, "step %d", i)
	}
}
