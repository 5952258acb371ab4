package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/corkboard/internal/board"
)

// Remote is a store the adapter syncs with.
type Remote interface {
	LoadItems(ctx context.Context, userID string) ([]board.Item, error)
	SaveItems(ctx context.Context, userID string, items []board.Item) error
}

// HTTPRemote talks to the workspace endpoints of a corkboard server.
type HTTPRemote struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPRemote returns a client for the API rooted at baseURL
// (e.g. http://localhost:5000/api). token, if set, is sent as a bearer token.
func NewHTTPRemote(baseURL, token string) *HTTPRemote {
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type workspaceBody struct {
	Items []board.Item `json:"items"`
}

func (r *HTTPRemote) endpoint(userID string) string {
	return r.baseURL + "/workspace/" + url.PathEscape(userID)
}

func (r *HTTPRemote) do(req *http.Request) (*http.Response, error) {
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("persist: %s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}

// LoadItems fetches the stored items.
func (r *HTTPRemote) LoadItems(ctx context.Context, userID string) ([]board.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(userID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body workspaceBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("persist: decode workspace: %w", err)
	}
	return body.Items, nil
}

// SaveItems posts the full item collection.
func (r *HTTPRemote) SaveItems(ctx context.Context, userID string, items []board.Item) error {
	if items == nil {
		items = []board.Item{}
	}
	payload, err := json.Marshal(workspaceBody{Items: items})
	if err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint(userID), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
