package persist

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback receives the id of a user whose cache file changed.
type ChangeCallback func(userID string)

const settleDelay = 200 * time.Millisecond

// Watch reports changes to cache files in dir until ctx is cancelled.
// Bursts of events are collapsed: cb runs once per user after the
// directory has been quiet for a short while.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("persist watcher: started", slog.String("dir", dir))

	pending := make(map[string]struct{})
	var settle *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settle == nil {
			settle = time.NewTimer(settleDelay)
			settleCh = settle.C
		} else {
			settle.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			logger.Info("persist watcher: stopped")
			return nil

		case <-settleCh:
			for user := range pending {
				cb(user)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			user, ok := userFromFile(ev.Name)
			if !ok {
				continue
			}
			logger.Debug("persist watcher: change", slog.String("user", user), slog.String("op", ev.Op.String()))
			pending[user] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("persist watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
