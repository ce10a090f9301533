package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Fixed keys, mirroring the panel's browser storage layout.
const (
	KeyPrefs   = "lunet_prefs"
	KeyTheme   = "lunet_theme"
	KeyLang    = "lunet_lang"
	KeySession = "lunet_session"
)

// Change describes a key written by another process.
type Change struct {
	Key      string
	OldValue string
	NewValue string
}

// Store is a flat string key/value file shared by every lunetctl process.
// Reads pick up writes made elsewhere; the last writer wins.
type Store struct {
	path string

	mu      sync.RWMutex
	values  map[string]string
	modTime time.Time
	size    int64

	lmu       sync.Mutex
	nextID    int
	listeners map[int]func(Change)
}

func Open(path string) (*Store, error) {
	s := &Store{path: path, values: map[string]string{}, listeners: map[int]func(Change){}}
	if _, err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(key string) (string, bool) {
	_ = s.Refresh()

	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Store) Set(key, value string) error {
	if err := s.Refresh(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.persistLocked()
}

func (s *Store) Remove(key string) error {
	if err := s.Refresh(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persistLocked()
}

func (s *Store) Keys() []string {
	_ = s.Refresh()

	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe registers fn for changes made by other processes. Own writes are not reported.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

// Refresh re-reads the file when it changed on disk and notifies subscribers.
func (s *Store) Refresh() error {
	changes, err := s.reload()
	if err != nil {
		return err
	}
	s.notify(changes)
	return nil
}

// Watch polls the file until ctx is done.
func (s *Store) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh()
		}
	}
}

func (s *Store) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	s.lmu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

func (s *Store) reload() ([]Change, error) {
	st, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		defer s.mu.Unlock()
		changes := diff(s.values, map[string]string{})
		s.values = map[string]string{}
		s.modTime, s.size = time.Time{}, 0
		return changes, nil
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ModTime().Equal(s.modTime) && st.Size() == s.size {
		return nil, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	next := map[string]string{}
	if len(data) > 0 {
		// A damaged file reads as empty, the same way a browser would hand back nothing usable.
		if err := json.Unmarshal(data, &next); err != nil {
			next = map[string]string{}
		}
	}
	changes := diff(s.values, next)
	s.values = next
	s.modTime, s.size = st.ModTime(), st.Size()
	return changes, nil
}

func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp-%d", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if st, err := os.Stat(s.path); err == nil {
		s.modTime, s.size = st.ModTime(), st.Size()
	}
	return nil
}

func diff(prev, next map[string]string) []Change {
	var changes []Change
	for k, nv := range next {
		if ov, ok := prev[k]; !ok || ov != nv {
			changes = append(changes, Change{Key: k, OldValue: prev[k], NewValue: nv})
		}
	}
	for k, ov := range prev {
		if _, ok := next[k]; !ok {
			changes = append(changes, Change{Key: k, OldValue: ov})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}
