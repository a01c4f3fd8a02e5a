package preferences

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	watchDebounce       = 250 * time.Millisecond
	watchRestartBackoff = time.Second
)

// Watch reloads the file when another process edits it and publishes the
// new settings when they differ. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	file := filepath.Base(s.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, s.reload)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(dir)
			if err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			s.logger.Warn("preferences watch init failed", "dir", dir, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(watchRestartBackoff):
				continue
			}
		}
		s.logger.Debug("preferences watcher started", "dir", dir, "file", file)

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if filepath.Base(ev.Name) == file && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce()
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err != nil {
					s.logger.Warn("preferences watch error", "dir", dir, "error", err)
					debounce()
				}
			}
		}
		_ = w.Close()
		s.logger.Warn("preferences watcher stopped, restarting", "dir", dir)
	}
}

func (s *Store) reload() {
	prefs, err := s.parse()
	if err != nil {
		s.logger.Warn("preferences reload rejected", "path", s.path, "error", err)
		return
	}

	s.mu.RLock()
	unchanged := prefs == s.current
	s.mu.RUnlock()
	if unchanged {
		return
	}

	token, expiry, err := s.openToken(prefs.Auth.SealedToken)
	if err != nil {
		s.logger.Warn("reloaded token unreadable, signing out", "error", err)
		prefs.Auth = Auth{}
	}
	s.commit(prefs, token, expiry)
	s.publish(prefs)
	s.logger.Info("preferences reloaded", "language", prefs.Language, "theme", prefs.Theme, "house_id", prefs.HouseID)
}
