package reward

// WinAmount is the flat payout for a won battle. Not proportional to
// any stake.
const WinAmount = 200

// Calculate returns the payout for a battle outcome. Only a win by the
// requesting side pays out.
func Calculate(winner string) int64 {
	if winner == "player" {
		return WinAmount
	}
	return 0
}
