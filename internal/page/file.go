package page

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileSource reads the page from an html file the browser saves (or an
// extension exports) on every change. The file is only read again after
// fsnotify reported a change, every snapshot still gets its own parse.
type FileSource struct {
	path    string
	url     string
	watcher *fsnotify.Watcher
	done    chan struct{}

	mutex sync.Mutex
	body  []byte
	stale bool
}

// NewFileSource watches path, url is used when the saved page does not
// name its own.
func NewFileSource(path, url string) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	// the directory is watched since browsers replace the file instead of
	// writing into it
	err = watcher.Add(filepath.Dir(abs))
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	s := &FileSource{
		path:    abs,
		url:     url,
		watcher: watcher,
		done:    make(chan struct{}),
		stale:   true,
	}
	go s.watch()
	return s, nil
}

func (s *FileSource) watch() {
	defer close(s.done)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.mutex.Lock()
			s.stale = true
			s.mutex.Unlock()
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			// a missed event only delays the next read, force one
			s.mutex.Lock()
			s.stale = true
			s.mutex.Unlock()
		}
	}
}

func (s *FileSource) read() ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.stale {
		return s.body, nil
	}
	body, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	s.body = body
	s.stale = false
	return body, nil
}

func (s *FileSource) Snapshot(ctx context.Context) (Snapshot, error) {
	_, span := tracer.Start(ctx, "FileSource.Snapshot")
	defer span.End()

	body, err := s.read()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read page: %w", err)
	}
	snapshot, err := Parse(body, "")
	if err != nil {
		return Snapshot{}, err
	}
	if snapshot.Context.URL == "" {
		snapshot.Context.URL = s.url
	}
	return snapshot, nil
}

func (s *FileSource) Close() error {
	err := s.watcher.Close()
	<-s.done
	return err
}
