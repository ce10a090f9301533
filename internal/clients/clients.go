package clients

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/prefs"
)

// Query is the table state the operator controls. Empty Filter and Sort
// fall back to the stored defaults.
type Query struct {
	Search string
	Filter string
	Sort   string
}

// Apply filters, sorts and pages users. The input slice is not modified.
func Apply(users []model.User, q Query, p prefs.Prefs) []model.User {
	filter := q.Filter
	if filter == "" {
		filter = p.DefaultFilter()
	}
	order := q.Sort
	if order == "" {
		order = p.DefaultSort()
	}
	needle := normalizeSearch(q.Search)

	list := make([]model.User, 0, len(users))
	for _, u := range users {
		if needle != "" && !strings.Contains(searchText(u), needle) {
			continue
		}
		switch filter {
		case "online":
			if !u.Online {
				continue
			}
		case "offline":
			if u.Online {
				continue
			}
		}
		list = append(list, u)
	}

	slices.SortStableFunc(list, compareFor(order))

	if size := p.PageSize(); len(list) > size {
		list = list[:size]
	}
	return list
}

func searchText(u model.User) string {
	return strings.ToLower(fmt.Sprintf("%d %s %s", u.UserID, u.Email, u.UUID))
}

// normalizeSearch lowercases the needle; a full UUID in any accepted spelling
// (braces, urn prefix, no hyphens) becomes its canonical hyphenated form.
func normalizeSearch(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if id, err := uuid.Parse(s); err == nil {
		return id.String()
	}
	return strings.ToLower(s)
}

func compareFor(order string) func(a, b model.User) int {
	switch order {
	case "traffic_desc":
		return func(a, b model.User) int { return cmp.Compare(b.Total, a.Total) }
	case "traffic_asc":
		return func(a, b model.User) int { return cmp.Compare(a.Total, b.Total) }
	case "id_asc":
		return func(a, b model.User) int { return cmp.Compare(a.UserID, b.UserID) }
	case "id_desc":
		return func(a, b model.User) int { return cmp.Compare(b.UserID, a.UserID) }
	default:
		return func(a, b model.User) int {
			if a.Online != b.Online {
				if a.Online {
					return -1
				}
				return 1
			}
			return cmp.Compare(b.Total, a.Total)
		}
	}
}

// Online returns the users currently online, in input order.
func Online(users []model.User) []model.User {
	var out []model.User
	for _, u := range users {
		if u.Online {
			out = append(out, u)
		}
	}
	return out
}

// TopUsers returns the n heaviest users by total traffic.
func TopUsers(users []model.User, n int) []model.User {
	list := slices.Clone(users)
	slices.SortStableFunc(list, compareFor("traffic_desc"))
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}

// SuggestNextUserID proposes an id above every known one, never below 1001.
func SuggestNextUserID(users []model.User) int64 {
	maxID := int64(1000)
	for _, u := range users {
		maxID = max(maxID, u.UserID)
	}
	return maxID + 1
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

func FormatBytes(n int64) string {
	v := float64(max(n, 0))
	idx := 0
	for v >= 1024 && idx < len(byteUnits)-1 {
		v /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%.0f %s", v, byteUnits[idx])
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[idx])
}

// OnlineLabel is the status cell text key: online, offline, or unknown when
// the backend cannot tell.
func OnlineLabel(u model.User) string {
	switch {
	case !u.OnlineSupported:
		return "common.unknown"
	case u.Online:
		return "common.online"
	default:
		return "common.offline"
	}
}
