package prefs

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"

	"github.com/najahiiii/lunetctl/internal/state"
)

// Record is a flat key→value preference record, the shape kept in storage.
type Record map[string]any

// Prefs is the defaulted, merged preference record. Numeric fields hold whatever
// was stored; use the accessor methods to read sanitized values.
type Prefs struct {
	DashboardRefreshSec  int    `json:"dashboard_refresh_sec"`
	GraphsRefreshSec     int    `json:"graphs_refresh_sec"`
	GraphsLineWidth      int    `json:"graphs_line_width"`
	GraphsPoints         int    `json:"graphs_points"`
	AutoCopyURI          bool   `json:"auto_copy_uri"`
	CompactMode          bool   `json:"compact_mode"`
	ShowToasts           bool   `json:"show_toasts"`
	ClientsDefaultSort   string `json:"clients_default_sort"`
	ClientsDefaultFilter string `json:"clients_default_filter"`
	ClientsPageSize      int    `json:"clients_page_size"`
}

func Defaults() Prefs {
	return fromRecord(Record{})
}

// Decode merges a stored JSON record over the defaults. It never fails: corrupt
// JSON yields defaults, unknown keys are ignored, a value of the wrong type
// leaves that field at its default.
func Decode(raw string) Prefs {
	var stored map[string]any
	if raw == "" || json.Unmarshal([]byte(raw), &stored) != nil {
		return Defaults()
	}
	rec := Record{}
	for _, f := range Schema {
		v, ok := stored[f.Key]
		if !ok {
			continue
		}
		if cv, ok := coerce(f, v); ok {
			rec[f.Key] = cv
		}
	}
	return fromRecord(rec)
}

func coerce(f Field, v any) (any, bool) {
	switch f.Kind {
	case KindInt:
		switch n := v.(type) {
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, false
			}
			return roundInt(n), true
		case int:
			return n, true
		case string:
			x, err := strconv.ParseFloat(n, 64)
			if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, false
			}
			return roundInt(x), true
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, true
		}
	case KindEnum:
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return nil, false
}

func fromRecord(rec Record) Prefs {
	intOf := func(key string) int {
		if v, ok := rec[key].(int); ok {
			return v
		}
		f, _ := Lookup(key)
		return f.Default.(int)
	}
	boolOf := func(key string) bool {
		if v, ok := rec[key].(bool); ok {
			return v
		}
		f, _ := Lookup(key)
		return f.Default.(bool)
	}
	strOf := func(key string) string {
		if v, ok := rec[key].(string); ok {
			return v
		}
		f, _ := Lookup(key)
		return f.Default.(string)
	}
	return Prefs{
		DashboardRefreshSec:  intOf(DashboardRefreshSec),
		GraphsRefreshSec:     intOf(GraphsRefreshSec),
		GraphsLineWidth:      intOf(GraphsLineWidth),
		GraphsPoints:         intOf(GraphsPoints),
		AutoCopyURI:          boolOf(AutoCopyURI),
		CompactMode:          boolOf(CompactMode),
		ShowToasts:           boolOf(ShowToasts),
		ClientsDefaultSort:   strOf(ClientsDefaultSort),
		ClientsDefaultFilter: strOf(ClientsDefaultFilter),
		ClientsPageSize:      intOf(ClientsPageSize),
	}
}

// Record returns p as a flat record keyed like the schema.
func (p Prefs) Record() Record {
	return Record{
		DashboardRefreshSec:  p.DashboardRefreshSec,
		GraphsRefreshSec:     p.GraphsRefreshSec,
		GraphsLineWidth:      p.GraphsLineWidth,
		GraphsPoints:         p.GraphsPoints,
		AutoCopyURI:          p.AutoCopyURI,
		CompactMode:          p.CompactMode,
		ShowToasts:           p.ShowToasts,
		ClientsDefaultSort:   p.ClientsDefaultSort,
		ClientsDefaultFilter: p.ClientsDefaultFilter,
		ClientsPageSize:      p.ClientsPageSize,
	}
}

func clamped(key string, v int) int {
	f, _ := Lookup(key)
	return f.Clamp(v)
}

func (p Prefs) DashboardRefresh() int { return clamped(DashboardRefreshSec, p.DashboardRefreshSec) }
func (p Prefs) GraphsRefresh() int    { return clamped(GraphsRefreshSec, p.GraphsRefreshSec) }
func (p Prefs) LineWidth() int        { return clamped(GraphsLineWidth, p.GraphsLineWidth) }
func (p Prefs) Points() int           { return clamped(GraphsPoints, p.GraphsPoints) }
func (p Prefs) PageSize() int         { return clamped(ClientsPageSize, p.ClientsPageSize) }

func (p Prefs) DefaultSort() string {
	if slices.Contains(SortOrders, p.ClientsDefaultSort) {
		return p.ClientsDefaultSort
	}
	return "online_desc"
}

func (p Prefs) DefaultFilter() string {
	if slices.Contains(Filters, p.ClientsDefaultFilter) {
		return p.ClientsDefaultFilter
	}
	return "all"
}

// Store persists preferences under state.KeyPrefs.
type Store struct {
	st *state.Store
}

func NewStore(st *state.Store) *Store {
	return &Store{st: st}
}

func (s *Store) Get() Prefs {
	raw, _ := s.st.Get(state.KeyPrefs)
	return Decode(raw)
}

// Set merges partial over the current record and persists the result.
// Keys outside the schema are ignored.
func (s *Store) Set(partial Record) (Prefs, error) {
	merged := s.Get().Record()
	for _, f := range Schema {
		v, ok := partial[f.Key]
		if !ok {
			continue
		}
		if cv, ok := coerce(f, v); ok {
			merged[f.Key] = cv
		}
	}
	next := fromRecord(merged)
	data, err := json.Marshal(next)
	if err != nil {
		return Prefs{}, err
	}
	if err := s.st.Set(state.KeyPrefs, string(data)); err != nil {
		return Prefs{}, err
	}
	return next, nil
}

// Reset drops the stored record so every field reads as its default.
func (s *Store) Reset() error {
	return s.st.Remove(state.KeyPrefs)
}
