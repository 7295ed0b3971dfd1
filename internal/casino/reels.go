package casino

// Slot symbols, in machine encoding order.
const (
	SymbolBAR = iota + 1
	SymbolGrape
	SymbolLemon
	SymbolSeven
)

var symbolNames = map[int]string{
	SymbolBAR:   "BAR",
	SymbolGrape: "🍇",
	SymbolLemon: "🍋",
	SymbolSeven: "7️⃣",
}

// Reels decodes a slot outcome (1..64) into its three reel symbols.
// Each reel holds four symbols; the outcome is a base-4 encoding with
// the left reel in the low bits.
func Reels(outcome int) (left, middle, right int) {
	value := outcome - 1
	left = (value % 4) + 1
	middle = ((value / 4) % 4) + 1
	right = (value / 16) + 1
	return left, middle, right
}

// ReelString renders the outcome's reels for chat display.
func ReelString(outcome int) string {
	left, middle, right := Reels(outcome)
	return symbolNames[left] + " " + symbolNames[middle] + " " + symbolNames[right]
}
