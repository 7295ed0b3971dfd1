// Package casino implements outcome classification and payout math for
// the slot-machine wager. Telegram encodes a slot roll as a value in
// [1,64]; a handful of values are winning combinations, everything else
// loses the stake.
package casino

// Stake limits.
const (
	// MinBet is the smallest accepted stake.
	MinBet int64 = 50
	// DefaultBet is used when the caller gives no stake.
	DefaultBet int64 = 50
)

// Winning multipliers by outcome class.
const (
	TripleMultiplier    = 7  // three of a kind, non-jackpot
	DoubleSevenMult     = 5  // two leading sevens
	JackpotMultiplier   = 10 // triple seven
	winningsFactor      = 1.6
	jackpotValue        = 64
)

// Three-of-a-kind values (bar, grape, lemon) and the two-leading-sevens
// values of the 1..64 slot encoding.
var (
	tripleValues      = map[int]bool{1: true, 22: true, 43: true}
	doubleSevenValues = map[int]bool{16: true, 32: true, 48: true}
)

// Multiplier returns the win multiplier for a slot outcome, or -1 for a
// losing roll.
func Multiplier(outcome int) int {
	switch {
	case outcome == jackpotValue:
		return JackpotMultiplier
	case tripleValues[outcome]:
		return TripleMultiplier
	case doubleSevenValues[outcome]:
		return DoubleSevenMult
	default:
		return -1
	}
}

// IsWin reports whether the outcome pays out.
func IsWin(outcome int) bool {
	return Multiplier(outcome) > 0
}

// Winnings returns the amount credited for a winning roll:
// stake x multiplier x 1.6. Zero for a losing roll (the stake was
// already debited when the wager began).
func Winnings(stake int64, outcome int) int64 {
	mult := Multiplier(outcome)
	if mult <= 0 {
		return 0
	}
	return int64(float64(stake*int64(mult)) * winningsFactor)
}

// ValidOutcome reports whether v is a possible slot roll.
func ValidOutcome(v int) bool {
	return v >= 1 && v <= 64
}
