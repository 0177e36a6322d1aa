package httptransport

import (
	"encoding/json"
	"net/http"

	appbattle "beast-arena/internal/app/battle"
	"beast-arena/internal/store"

	"github.com/go-chi/chi/v5"
)

type BattleHandlers struct {
	svc *appbattle.Service
}

func NewBattleHandlers(svc *appbattle.Service) *BattleHandlers {
	return &BattleHandlers{svc: svc}
}

func (h *BattleHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID string `json:"player_id"`
			BeastID  string `json:"beast_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		b, err := h.svc.Create(r.Context(), body.PlayerID, body.BeastID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(b)
	}
}

func (h *BattleHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RoomCode string `json:"room_code"`
			PlayerID string `json:"player_id"`
			BeastID  string `json:"beast_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		b, err := h.svc.Join(r.Context(), body.RoomCode, body.PlayerID, body.BeastID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	}
}

func (h *BattleHandlers) ListWaiting() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.svc.ListWaiting(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if list == nil {
			list = []store.Battle{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"battles": list})
	}
}

func (h *BattleHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := h.svc.Get(r.Context(), chi.URLParam(r, "battle_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	}
}

func (h *BattleHandlers) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID string `json:"player_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if err := h.svc.Cancel(r.Context(), chi.URLParam(r, "battle_id"), body.PlayerID); err != nil {
			writeServiceError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func (h *BattleHandlers) SelectBeast() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID string `json:"player_id"`
			BeastID  string `json:"beast_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		b, err := h.svc.SelectBeast(r.Context(), chi.URLParam(r, "battle_id"), body.PlayerID, body.BeastID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	}
}

func (h *BattleHandlers) AppendMove() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body appbattle.AppendMoveRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		body.BattleID = chi.URLParam(r, "battle_id")
		res, err := h.svc.AppendMove(r.Context(), body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(res)
	}
}

func (h *BattleHandlers) ListMoves() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		moves, err := h.svc.Moves(r.Context(), chi.URLParam(r, "battle_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if moves == nil {
			moves = []store.Move{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"moves": moves})
	}
}

func (h *BattleHandlers) Complete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Winner        string `json:"winner"`
			FinalPlayerHP int    `json:"final_player_hp"`
			FinalEnemyHP  int    `json:"final_enemy_hp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		b, err := h.svc.CompletePVE(r.Context(), chi.URLParam(r, "battle_id"), body.Winner, body.FinalPlayerHP, body.FinalEnemyHP)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	}
}

func (h *BattleHandlers) GetBeast() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := h.svc.Beast(r.Context(), chi.URLParam(r, "beast_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(b)
	}
}
