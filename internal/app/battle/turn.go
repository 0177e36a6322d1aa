package battle

// resolveFirstTurn picks who moves first from the two locked beasts'
// speed stats. Exact ties break uniformly at random; the nondeterminism
// is intentional (unseeded per request in production, seeded in tests).
func (s *Service) resolveFirstTurn(player1ID, player2ID string, speed1, speed2 int) string {
	switch {
	case speed1 > speed2:
		return player1ID
	case speed2 > speed1:
		return player2ID
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	if s.rng.Intn(2) == 0 {
		return player1ID
	}
	return player2ID
}
