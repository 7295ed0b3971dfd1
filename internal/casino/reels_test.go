package casino

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestReels_TriplesAreTheBigWins(t *testing.T) {
	// The ×7 and ×10 outcomes are exactly the triples.
	for _, outcome := range []int{1, 22, 43, 64} {
		left, middle, right := Reels(outcome)
		assert.Equal(t, left, middle, "outcome %d", outcome)
		assert.Equal(t, middle, right, "outcome %d", outcome)
	}

	// The ×5 outcomes lead with two sevens.
	for _, outcome := range []int{16, 32, 48} {
		left, middle, _ := Reels(outcome)
		assert.Equal(t, SymbolSeven, left, "outcome %d", outcome)
		assert.Equal(t, SymbolSeven, middle, "outcome %d", outcome)
	}
}

func TestReels_DecodeRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outcome := rapid.IntRange(1, 64).Draw(t, "outcome")
		left, middle, right := Reels(outcome)

		assert.GreaterOrEqual(t, left, SymbolBAR)
		assert.LessOrEqual(t, left, SymbolSeven)
		assert.GreaterOrEqual(t, middle, SymbolBAR)
		assert.LessOrEqual(t, middle, SymbolSeven)
		assert.GreaterOrEqual(t, right, SymbolBAR)
		assert.LessOrEqual(t, right, SymbolSeven)

		encoded := left + (middle-1)*4 + (right-1)*16
		assert.Equal(t, outcome, encoded)
	})
}
