package session

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalDirName is the directory, relative to the project state dir,
// watched for out-of-band session signals.
const SignalDirName = "signals"

const cancelPrefix = "cancel-"

// SignalWatcher watches a directory for cancellation signal files.
// Dropping a file named cancel-<session-id> into the directory cancels
// that session. External tooling can stop a run without holding a
// handle on the manager process API.
type SignalWatcher struct {
	dir     string
	manager *Manager
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalWatcher creates a watcher over dir, creating the directory if
// needed.
func NewSignalWatcher(dir string, manager *Manager) (*SignalWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create signal dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create signal watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch signal dir: %w", err)
	}
	return &SignalWatcher{
		dir:     dir,
		manager: manager,
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

// Start begins processing signal files in the background. Files present
// before Start are handled on the first sweep.
func (s *SignalWatcher) Start() {
	go s.loop()
}

// Close stops the watcher.
func (s *SignalWatcher) Close() error {
	close(s.done)
	return s.watcher.Close()
}

func (s *SignalWatcher) loop() {
	s.sweep()

	// Polling backstop for filesystems where fsnotify events are
	// unreliable, such as some network mounts.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				s.handle(event.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[signals] watch error: %v", err)
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep handles any signal files already sitting in the directory.
func (s *SignalWatcher) sweep() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		s.handle(filepath.Join(s.dir, entry.Name()))
	}
}

// handle interprets one signal file and removes it once consumed.
func (s *SignalWatcher) handle(path string) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, cancelPrefix) {
		return
	}
	sessionID := strings.TrimPrefix(name, cancelPrefix)
	if sessionID == "" {
		return
	}
	if err := s.manager.Cancel(sessionID); err != nil {
		log.Printf("[signals] cancel %s: %v", sessionID, err)
	} else {
		log.Printf("[signals] session %s cancelled by signal file", sessionID)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[signals] remove %s: %v", path, err)
	}
}
