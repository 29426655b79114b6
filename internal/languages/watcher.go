package languages

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads the catalog whenever a language file changes, until ctx is
// cancelled. It is meant for development mode.
func (s *Service) Watch(ctx context.Context) error {
	if s.dir == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return err
	}
	s.logger.Info("languages.watch.started", "directory", s.dir)

	var timer *time.Timer
	var reload <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Info("languages.watch.stopped")
			return nil

		case <-reload:
			reload = nil
			if err := s.Load(ctx); err != nil {
				s.logger.Warn("languages.reload_failed", "error", err)
				continue
			}
			s.logger.Debug("languages.reloaded")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isLanguageFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			reload = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("languages.watch.error", "error", watchErr)
		}
	}
}

func isLanguageFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
