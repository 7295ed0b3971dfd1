package casino

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMultiplier(t *testing.T) {
	tests := []struct {
		name    string
		outcome int
		want    int
	}{
		{"triple bar", 1, 7},
		{"triple grape", 22, 7},
		{"triple lemon", 43, 7},
		{"double seven bar", 16, 5},
		{"double seven grape", 32, 5},
		{"double seven lemon", 48, 5},
		{"jackpot", 64, 10},
		{"losing low", 2, -1},
		{"losing mid", 33, -1},
		{"losing high", 63, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Multiplier(tt.outcome))
		})
	}
}

func TestWinnings(t *testing.T) {
	// stake 50, jackpot: 50 * 10 * 1.6 = 800
	assert.Equal(t, int64(800), Winnings(50, 64))

	// stake 50, triple: 50 * 7 * 1.6 = 560
	assert.Equal(t, int64(560), Winnings(50, 22))

	// stake 100, double seven: 100 * 5 * 1.6 = 800
	assert.Equal(t, int64(800), Winnings(100, 16))

	// losing roll credits nothing
	assert.Equal(t, int64(0), Winnings(50, 2))
}

// TestLossEverywhereElseProperty checks that every outcome outside the
// seven winning values is a full-stake loss.
func TestLossEverywhereElseProperty(t *testing.T) {
	winning := map[int]bool{1: true, 22: true, 43: true, 16: true, 32: true, 48: true, 64: true}

	rapid.Check(t, func(t *rapid.T) {
		outcome := rapid.IntRange(1, 64).Draw(t, "outcome")
		stake := rapid.Int64Range(MinBet, 100_000).Draw(t, "stake")

		if winning[outcome] {
			if Winnings(stake, outcome) <= 0 {
				t.Fatalf("outcome %d should pay out", outcome)
			}
			if !IsWin(outcome) {
				t.Fatalf("outcome %d should classify as a win", outcome)
			}
		} else {
			if Multiplier(outcome) != -1 {
				t.Fatalf("outcome %d should be a loss", outcome)
			}
			if Winnings(stake, outcome) != 0 {
				t.Fatalf("losing outcome %d must not pay out", outcome)
			}
		}
	})
}

// TestWinningsMonotoneInStakeProperty checks that a bigger stake never
// pays less for the same winning outcome.
func TestWinningsMonotoneInStakeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outcome := rapid.SampledFrom([]int{1, 22, 43, 16, 32, 48, 64}).Draw(t, "outcome")
		a := rapid.Int64Range(MinBet, 50_000).Draw(t, "a")
		b := rapid.Int64Range(MinBet, 50_000).Draw(t, "b")
		if a > b {
			a, b = b, a
		}
		if Winnings(a, outcome) > Winnings(b, outcome) {
			t.Fatalf("winnings decreased with stake: %d>%d for outcome %d", a, b, outcome)
		}
	})
}

func TestValidOutcome(t *testing.T) {
	assert.False(t, ValidOutcome(0))
	assert.True(t, ValidOutcome(1))
	assert.True(t, ValidOutcome(64))
	assert.False(t, ValidOutcome(65))
}
