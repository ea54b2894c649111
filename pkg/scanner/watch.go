package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Justype/modules/pkg/catalog"
)

// DefaultDebounce is the quiet period after the last change before a rescan.
const DefaultDebounce = 500 * time.Millisecond

// maxWatchDepth covers <root>/<name>/<assembly> for reference packages.
const maxWatchDepth = 2

// Watch rescans the tree whenever it changes and hands the result to
// onChange. It blocks until ctx is cancelled. onChange runs on the watching
// goroutine, so rescans never overlap.
func (s *Scanner) Watch(ctx context.Context, debounce time.Duration, onChange func([]catalog.Descriptor) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := s.watchTree(watcher, s.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.root, err)
	}

	s.logger.Info().Str("root", s.root).Msg("Watching build scripts")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if s.ignored(event.Name) {
				continue
			}
			s.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Build script tree changed")

			if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
				if err := s.watchTree(watcher, event.Name); err != nil {
					s.logger.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
				}
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			descs, err := s.Scan()
			if err != nil {
				s.logger.Error().Err(err).Msg("Rescan failed")
				continue
			}
			if err := onChange(descs); err != nil {
				s.logger.Error().Err(err).Msg("Failed to apply rescan")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// watchTree adds dir and its subdirectories down to maxWatchDepth below the
// root.
func (s *Scanner) watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if s.depth(path) > maxWatchDepth || s.ignored(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func (s *Scanner) depth(path string) int {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

// ignored filters editor swap files and the template directory.
func (s *Scanner) ignored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return path != s.root
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel == s.templateDir || strings.HasPrefix(rel, s.templateDir+string(filepath.Separator))
}
