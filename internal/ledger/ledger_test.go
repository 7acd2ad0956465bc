package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/trellisgraph/trellis/internal/token"
)

var (
	gold = CurrencyKey("gold")
	gems = AssetKey("gems", 7)
	a    = token.NewID("kanaria", 1)
	b    = token.NewID("kanaria", 2)
)

func TestDeposit_AccumulatesPerOwner(t *testing.T) {
	l := New()

	require.NoError(t, l.Deposit(gold, a, 100))
	require.NoError(t, l.Deposit(gold, a, 50))
	require.NoError(t, l.Deposit(gold, b, 25))

	require.Equal(t, uint64(150), l.BalanceOf(gold, a))
	require.Equal(t, uint64(25), l.BalanceOf(gold, b))
	require.Equal(t, uint64(175), l.Total(gold))
}

func TestDeposit_ZeroAmountFails(t *testing.T) {
	l := New()
	require.ErrorIs(t, l.Deposit(gold, a, 0), ErrInvalidAmount)
	require.Zero(t, l.BalanceOf(gold, a))
}

func TestWithdrawAll_ReturnsAndZeroes(t *testing.T) {
	l := New()
	require.NoError(t, l.Deposit(gems, a, 42))

	amount, err := l.WithdrawAll(gems, a)
	require.NoError(t, err)
	require.Equal(t, uint64(42), amount)
	require.Zero(t, l.BalanceOf(gems, a))
}

func TestWithdrawAll_ZeroBalanceFails(t *testing.T) {
	l := New()
	_, err := l.WithdrawAll(gold, a)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBalanceOf_AbsentEntriesAreZero(t *testing.T) {
	l := New()
	require.Zero(t, l.BalanceOf(gold, a))
	require.Zero(t, l.BalanceOf(AssetKey("nowhere", 1), b))
}

func TestKeys_DistinctResourcesDoNotMix(t *testing.T) {
	l := New()
	require.NoError(t, l.Deposit(gold, a, 10))
	require.NoError(t, l.Deposit(gems, a, 3))
	require.NoError(t, l.Deposit(AssetKey("gems", 8), a, 5))

	require.Equal(t, uint64(10), l.BalanceOf(gold, a))
	require.Equal(t, uint64(3), l.BalanceOf(gems, a))
	require.Equal(t, uint64(5), l.BalanceOf(AssetKey("gems", 8), a))
}

func TestKey_StringRoundTrip(t *testing.T) {
	for _, key := range []Key{gold, gems, AssetKey("x", 0)} {
		parsed, err := ParseKey(key.String())
		require.NoError(t, err)
		require.Equal(t, key, parsed)
	}

	_, err := ParseKey("bogus")
	require.Error(t, err)
	_, err = ParseKey("counted:gems")
	require.Error(t, err)
}

// TestLedger_Conservation_RandomMoves checks that moving an attachment
// between owners (withdraw + re-deposit) preserves the per-resource total,
// across random operation sequences.
func TestLedger_Conservation_RandomMoves(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New()
		owners := []token.ID{a, b, token.NewID("kanaria", 3)}
		pick := rapid.SampledFrom(owners)

		var deposited uint64
		numOps := rapid.IntRange(1, 100).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			switch rapid.IntRange(0, 1).Draw(t, "op") {
			case 0: // external deposit grows the total
				amt := rapid.Uint64Range(1, 1000).Draw(t, "amount")
				require.NoError(t, l.Deposit(gold, pick.Draw(t, "owner"), amt))
				deposited += amt
			case 1: // move between owners keeps the total
				from := pick.Draw(t, "from")
				to := pick.Draw(t, "to")
				if from == to {
					continue
				}
				amt, err := l.WithdrawAll(gold, from)
				if err != nil {
					require.ErrorIs(t, err, ErrNotFound)
					continue
				}
				require.NoError(t, l.Deposit(gold, to, amt))
			}
			require.Equal(t, deposited, l.Total(gold))
		}
	})
}
