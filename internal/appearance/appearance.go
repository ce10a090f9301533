package appearance

import (
	"sync"

	"github.com/najahiiii/lunetctl/internal/i18n"
	"github.com/najahiiii/lunetctl/internal/state"
)

type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

// ResolveTheme maps anything that is not "light" to Dark.
func ResolveTheme(s string) Theme {
	if Theme(s) == Light {
		return Light
	}
	return Dark
}

// Event is delivered to listeners after the language or theme changed.
type Event struct {
	Lang  i18n.Lang
	Theme Theme
}

// Service owns the language and theme flags. Both are read from storage on
// every call, so a value written by another process is seen on the next render.
type Service struct {
	st *state.Store

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Event)
}

func New(st *state.Store) *Service {
	return &Service{st: st, listeners: map[int]func(Event){}}
}

func (s *Service) Lang() i18n.Lang {
	v, _ := s.st.Get(state.KeyLang)
	return i18n.Match(v)
}

func (s *Service) Theme() Theme {
	v, _ := s.st.Get(state.KeyTheme)
	return ResolveTheme(v)
}

func (s *Service) Translator() i18n.Translator {
	return i18n.New(s.Lang())
}

func (s *Service) Palette() Palette {
	return PaletteFor(s.Theme())
}

func (s *Service) SetLang(tag string) (i18n.Lang, error) {
	l := i18n.Match(tag)
	if err := s.st.Set(state.KeyLang, string(l)); err != nil {
		return "", err
	}
	s.emit()
	return l, nil
}

func (s *Service) ToggleLang() (i18n.Lang, error) {
	if s.Lang() == i18n.EN {
		return s.SetLang(string(i18n.RU))
	}
	return s.SetLang(string(i18n.EN))
}

func (s *Service) SetTheme(v string) (Theme, error) {
	th := ResolveTheme(v)
	if err := s.st.Set(state.KeyTheme, string(th)); err != nil {
		return "", err
	}
	s.emit()
	return th, nil
}

func (s *Service) ToggleTheme() (Theme, error) {
	if s.Theme() == Dark {
		return s.SetTheme(string(Light))
	}
	return s.SetTheme(string(Dark))
}

// OnChange registers fn and returns a function that removes it.
func (s *Service) OnChange(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// BindStorageSync re-emits when another process changes the language or theme.
// Drive it with state.Store.Watch.
func (s *Service) BindStorageSync() func() {
	return s.st.Subscribe(func(c state.Change) {
		if c.Key == state.KeyLang || c.Key == state.KeyTheme {
			s.emit()
		}
	})
}

func (s *Service) emit() {
	ev := Event{Lang: s.Lang(), Theme: s.Theme()}
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
