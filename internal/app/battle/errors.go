package battle

import "errors"

// Sentinel errors, one per API failure code. Handlers map them to HTTP
// statuses; conflict errors are expected outcomes of concurrent play,
// not bugs.
var (
	ErrMissingFields          = errors.New("missing_required_fields")
	ErrInvalidCodeFormat      = errors.New("invalid_code_format")
	ErrRoomNotFound           = errors.New("room_not_found")
	ErrSelfJoin               = errors.New("self_join")
	ErrRoomUnavailable        = errors.New("room_unavailable")
	ErrRoomAlreadyJoined      = errors.New("room_already_joined")
	ErrRoomCodeExhausted      = errors.New("room_code_exhausted")
	ErrBattleNotFound         = errors.New("battle_not_found")
	ErrPlayerNotInBattle      = errors.New("player_not_in_battle")
	ErrPlayerNotFound         = errors.New("player_not_found")
	ErrBattleCompleted        = errors.New("battle_completed")
	ErrBeastAlreadyLocked     = errors.New("beast_already_locked")
	ErrBeastNotFound          = errors.New("beast_not_found")
	ErrBeastNotOwned          = errors.New("beast_not_owned")
	ErrInvalidWinnerValue     = errors.New("invalid_winner_value")
	ErrBattleAlreadyCompleted = errors.New("battle_already_completed")
	ErrInvalidBattleResult    = errors.New("invalid_battle_result")
)
