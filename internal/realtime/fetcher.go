package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"beast-arena/internal/store"
)

// Fetcher is the pull side of sync: authoritative reads from the battle
// server used by the poll loop and to seed state after (re)connecting.
type Fetcher interface {
	Battle(ctx context.Context, battleID string) (*store.Battle, error)
	Moves(ctx context.Context, battleID string) ([]store.Move, error)
	WaitingBattles(ctx context.Context) ([]store.Battle, error)
	Beast(ctx context.Context, beastID string) (*store.Beast, error)
}

// HTTPFetcher reads from the battle server's REST API.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return store.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *HTTPFetcher) Battle(ctx context.Context, battleID string) (*store.Battle, error) {
	var b store.Battle
	if err := f.getJSON(ctx, "/api/battles/"+battleID, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (f *HTTPFetcher) Moves(ctx context.Context, battleID string) ([]store.Move, error) {
	var out struct {
		Moves []store.Move `json:"moves"`
	}
	if err := f.getJSON(ctx, "/api/battles/"+battleID+"/moves", &out); err != nil {
		return nil, err
	}
	return out.Moves, nil
}

func (f *HTTPFetcher) WaitingBattles(ctx context.Context) ([]store.Battle, error) {
	var out struct {
		Battles []store.Battle `json:"battles"`
	}
	if err := f.getJSON(ctx, "/api/battles/waiting", &out); err != nil {
		return nil, err
	}
	return out.Battles, nil
}

func (f *HTTPFetcher) Beast(ctx context.Context, beastID string) (*store.Beast, error) {
	var b store.Beast
	if err := f.getJSON(ctx, "/api/beasts/"+beastID, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
