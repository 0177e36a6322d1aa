package reward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"beast-arena/internal/store"
)

// Transferrer pays out reward tokens through the external transfer
// service.
type Transferrer interface {
	Transfer(ctx context.Context, battleID, playerID string, amount int64) error
}

// TransferError carries the transfer service's status code so callers
// can tell retryable outages from permanent rejections.
type TransferError struct {
	StatusCode int
	Body       string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("reward transfer failed: status %d", e.StatusCode)
}

// Retryable reports whether the failure class is worth retrying later:
// 5xx means the service choked, 4xx means it rejected the request.
func (e *TransferError) Retryable() bool {
	return e.StatusCode >= 500
}

// HTTPTransferrer posts transfers to the reward service.
type HTTPTransferrer struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPTransferrer(baseURL string, timeout time.Duration) *HTTPTransferrer {
	return &HTTPTransferrer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

type transferRequest struct {
	BattleID string `json:"battle_id"`
	PlayerID string `json:"player_id"`
	Amount   int64  `json:"amount"`
}

func (t *HTTPTransferrer) Transfer(ctx context.Context, battleID, playerID string, amount int64) error {
	payload, err := json.Marshal(transferRequest{BattleID: battleID, PlayerID: playerID, Amount: amount})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/transfers", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &TransferError{StatusCode: resp.StatusCode, Body: string(body)}
}

// Service applies reward transfers and classifies the outcome into a
// reward status. It never returns an error: battle completion must not
// be blocked or reversed by payout trouble.
type Service struct {
	transferrer Transferrer
}

func NewService(t Transferrer) *Service {
	return &Service{transferrer: t}
}

// Apply attempts the transfer and returns the resulting reward status.
func (s *Service) Apply(ctx context.Context, battleID, playerID string, amount int64) string {
	if amount <= 0 {
		return store.RewardNone
	}
	if s == nil || s.transferrer == nil {
		log.Warn().Str("battle_id", battleID).Msg("no reward transferrer configured, leaving reward pending")
		return store.RewardPending
	}
	err := s.transferrer.Transfer(ctx, battleID, playerID, amount)
	if err == nil {
		log.Info().Str("battle_id", battleID).Str("player_id", playerID).Int64("amount", amount).Msg("reward transfer completed")
		return store.RewardCompleted
	}
	retryable := true
	if te, ok := err.(*TransferError); ok {
		retryable = te.Retryable()
	}
	log.Error().Err(err).
		Str("battle_id", battleID).
		Str("player_id", playerID).
		Int64("amount", amount).
		Bool("retryable", retryable).
		Msg("reward transfer failed")
	if retryable {
		return store.RewardPending
	}
	return store.RewardFailed
}
