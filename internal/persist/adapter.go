package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/corkboard/internal/board"
)

// Adapter combines the local cache with an optional remote. Load never
// fails and Save never blocks on the remote.
//
// Remote saves for one user run one at a time. When several snapshots queue
// up behind a running save, only the newest is sent.
type Adapter struct {
	local   *Local
	remote  Remote
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string][]board.Item
	pushing map[string]bool
	wg      sync.WaitGroup
}

// NewAdapter returns an adapter. remote may be nil.
func NewAdapter(local *Local, remote Remote, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		local:   local,
		remote:  remote,
		logger:  logger,
		timeout: 10 * time.Second,
		pending: make(map[string][]board.Item),
		pushing: make(map[string]bool),
	}
}

// Local returns the cache the adapter writes through.
func (a *Adapter) Local() *Local {
	return a.local
}

// Load returns the user's items from the remote, or from the local cache
// when the remote fails, or an empty slice when both fail.
func (a *Adapter) Load(ctx context.Context, userID string) []board.Item {
	if a.remote != nil {
		items, err := a.remote.LoadItems(ctx, userID)
		if err == nil {
			if items == nil {
				items = []board.Item{}
			}
			return items
		}
		a.logger.Warn("persist: remote load failed, using local cache",
			slog.String("user", userID), slog.String("error", err.Error()))
	}
	items, err := a.local.LoadItems(ctx, userID)
	if err != nil {
		a.logger.Debug("persist: local load failed",
			slog.String("user", userID), slog.String("error", err.Error()))
		return []board.Item{}
	}
	return items
}

// Save writes the local cache synchronously and then pushes to the remote
// in the background. Failures are logged only.
func (a *Adapter) Save(userID string, items []board.Item) {
	if err := a.local.SaveItems(context.Background(), userID, items); err != nil {
		a.logger.Error("persist: local save failed",
			slog.String("user", userID), slog.String("error", err.Error()))
	}
	if a.remote == nil {
		return
	}
	a.mu.Lock()
	a.pending[userID] = items
	if a.pushing[userID] {
		a.mu.Unlock()
		return
	}
	a.pushing[userID] = true
	a.wg.Add(1)
	a.mu.Unlock()
	go a.push(userID)
}

// push sends the user's latest pending snapshot until none is left.
func (a *Adapter) push(userID string) {
	defer a.wg.Done()
	for {
		a.mu.Lock()
		items, ok := a.pending[userID]
		if !ok {
			delete(a.pushing, userID)
			a.mu.Unlock()
			return
		}
		delete(a.pending, userID)
		a.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.remote.SaveItems(ctx, userID, items)
		cancel()
		if err != nil {
			a.logger.Warn("persist: remote save failed",
				slog.String("user", userID), slog.String("error", err.Error()))
		}
	}
}

// Wait blocks until background remote saves have finished.
func (a *Adapter) Wait() {
	a.wg.Wait()
}
