package workspace

import (
	"context"

	"github.com/starford/corkboard/internal/board"
	"github.com/starford/corkboard/internal/persist"
)

// storeRemote lets a session sync straight against the datastore.
type storeRemote struct {
	s Store
}

// AsRemote adapts s to persist.Remote.
func AsRemote(s Store) persist.Remote {
	return storeRemote{s: s}
}

func (r storeRemote) LoadItems(ctx context.Context, userID string) ([]board.Item, error) {
	rec, err := r.s.GetWorkspace(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.Items, nil
}

func (r storeRemote) SaveItems(ctx context.Context, userID string, items []board.Item) error {
	_, err := r.s.SaveWorkspace(ctx, userID, items)
	return err
}
