package prefs

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindEnum
)

// Field is one entry of the preference schema.
type Field struct {
	Key     string
	Kind    Kind
	Min     int
	Max     int
	Enum    []string
	Default any
}

const (
	DashboardRefreshSec  = "dashboard_refresh_sec"
	GraphsRefreshSec     = "graphs_refresh_sec"
	GraphsLineWidth      = "graphs_line_width"
	GraphsPoints         = "graphs_points"
	AutoCopyURI          = "auto_copy_uri"
	CompactMode          = "compact_mode"
	ShowToasts           = "show_toasts"
	ClientsDefaultSort   = "clients_default_sort"
	ClientsDefaultFilter = "clients_default_filter"
	ClientsPageSize      = "clients_page_size"
)

var SortOrders = []string{"online_desc", "traffic_desc", "traffic_asc", "id_asc", "id_desc"}

var Filters = []string{"all", "online", "offline"}

// Schema lists every preference in display order.
var Schema = []Field{
	{Key: DashboardRefreshSec, Kind: KindInt, Min: 5, Max: 120, Default: 15},
	{Key: AutoCopyURI, Kind: KindBool, Default: true},
	{Key: ClientsPageSize, Kind: KindInt, Min: 10, Max: 1000, Default: 100},
	{Key: ClientsDefaultSort, Kind: KindEnum, Enum: SortOrders, Default: "online_desc"},
	{Key: ClientsDefaultFilter, Kind: KindEnum, Enum: Filters, Default: "all"},
	{Key: GraphsRefreshSec, Kind: KindInt, Min: 2, Max: 30, Default: 5},
	{Key: GraphsLineWidth, Kind: KindInt, Min: 2, Max: 6, Default: 3},
	{Key: GraphsPoints, Kind: KindInt, Min: 30, Max: 180, Default: 90},
	{Key: CompactMode, Kind: KindBool, Default: false},
	{Key: ShowToasts, Kind: KindBool, Default: true},
}

func Lookup(key string) (Field, bool) {
	for _, f := range Schema {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func (f Field) Clamp(v int) int {
	return min(f.Max, max(f.Min, v))
}

// normalizeInt is the settings form rule: unparseable input becomes the default,
// anything else is rounded and clamped.
func (f Field) normalizeInt(raw string) int {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return f.Default.(int)
	}
	return f.Clamp(roundInt(math.Max(float64(f.Min), math.Min(float64(f.Max), n))))
}

// roundInt rounds n and saturates it to the int32 range, so a huge stored or
// typed number never wraps to the opposite bound when converted.
func roundInt(n float64) int {
	return int(math.Round(math.Max(math.MinInt32, math.Min(math.MaxInt32, n))))
}

// Parse converts a CLI "key=value" pair into a record value.
func Parse(key, raw string) (any, error) {
	f, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("unknown setting %q", key)
	}
	raw = strings.TrimSpace(raw)
	switch f.Kind {
	case KindInt:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%s: %q is not a number", key, raw)
		}
		return f.normalizeInt(raw), nil
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", key, raw)
		}
		return b, nil
	default:
		if raw == "" {
			return f.Default, nil
		}
		if !slices.Contains(f.Enum, raw) {
			return nil, fmt.Errorf("%s: %q is not one of %s", key, raw, strings.Join(f.Enum, ", "))
		}
		return raw, nil
	}
}

// Normalize applies the settings form rules to raw text inputs. Unknown keys are dropped.
func Normalize(input map[string]string) Record {
	out := Record{}
	for key, raw := range input {
		f, ok := Lookup(key)
		if !ok {
			continue
		}
		switch f.Kind {
		case KindInt:
			out[key] = f.normalizeInt(raw)
		case KindBool:
			b, _ := strconv.ParseBool(strings.TrimSpace(raw))
			out[key] = b
		default:
			v := strings.TrimSpace(raw)
			if v == "" || !slices.Contains(f.Enum, v) {
				v = f.Default.(string)
			}
			out[key] = v
		}
	}
	return out
}
