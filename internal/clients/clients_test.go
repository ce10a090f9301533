package clients

import (
	"testing"

	"github.com/najahiiii/lunetctl/internal/model"
	"github.com/najahiiii/lunetctl/internal/prefs"
)

func sampleUsers() []model.User {
	return []model.User{
		{UserID: 1001, Email: "1001@lunet", UUID: "6f1c2b1e-0d7a-4c6e-9a55-2b1f0c9e8d71", Total: 500, Online: false, OnlineSupported: true},
		{UserID: 1003, Email: "1003@lunet", UUID: "a0a0a0a0-1111-2222-3333-444455556666", Total: 100, Online: true, OnlineSupported: true},
		{UserID: 1002, Email: "Bob@lunet", UUID: "b1b1b1b1-1111-2222-3333-444455556666", Total: 900, Online: false, OnlineSupported: true},
		{UserID: 1004, Email: "1004@lunet", UUID: "c2c2c2c2-1111-2222-3333-444455556666", Total: 300, Online: true, OnlineSupported: true},
	}
}

func ids(users []model.User) []int64 {
	out := make([]int64, len(users))
	for i, u := range users {
		out[i] = u.UserID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplySortOrders(t *testing.T) {
	p := prefs.Defaults()
	tests := []struct {
		sort string
		want []int64
	}{
		{"", []int64{1004, 1003, 1002, 1001}},
		{"online_desc", []int64{1004, 1003, 1002, 1001}},
		{"bogus", []int64{1004, 1003, 1002, 1001}},
		{"traffic_desc", []int64{1002, 1001, 1004, 1003}},
		{"traffic_asc", []int64{1003, 1004, 1001, 1002}},
		{"id_asc", []int64{1001, 1002, 1003, 1004}},
		{"id_desc", []int64{1004, 1003, 1002, 1001}},
	}
	for _, tt := range tests {
		got := ids(Apply(sampleUsers(), Query{Sort: tt.sort}, p))
		if !equalIDs(got, tt.want) {
			t.Fatalf("sort %q = %v, want %v", tt.sort, got, tt.want)
		}
	}
}

func TestApplyFilterAndSearch(t *testing.T) {
	p := prefs.Defaults()
	users := sampleUsers()

	if got := ids(Apply(users, Query{Filter: "online"}, p)); !equalIDs(got, []int64{1004, 1003}) {
		t.Fatalf("online = %v", got)
	}
	if got := ids(Apply(users, Query{Filter: "offline"}, p)); !equalIDs(got, []int64{1002, 1001}) {
		t.Fatalf("offline = %v", got)
	}
	if got := ids(Apply(users, Query{Search: "  BOB "}, p)); !equalIDs(got, []int64{1002}) {
		t.Fatalf("search bob = %v", got)
	}
	if got := ids(Apply(users, Query{Search: "{6F1C2B1E-0D7A-4C6E-9A55-2B1F0C9E8D71}"}, p)); !equalIDs(got, []int64{1001}) {
		t.Fatalf("uuid search = %v", got)
	}
	if got := ids(Apply(users, Query{Search: "1003"}, p)); !equalIDs(got, []int64{1003}) {
		t.Fatalf("id search = %v", got)
	}

	p.ClientsDefaultFilter = "online"
	if got := Apply(users, Query{}, p); len(got) != 2 {
		t.Fatalf("default filter not applied: %v", ids(got))
	}
}

func TestApplyPageSizeClamped(t *testing.T) {
	users := make([]model.User, 25)
	for i := range users {
		users[i] = model.User{UserID: int64(i + 1)}
	}
	p := prefs.Defaults()
	p.ClientsPageSize = 3
	if got := Apply(users, Query{}, p); len(got) != 10 {
		t.Fatalf("page size 3 should clamp to 10, got %d", len(got))
	}
	p.ClientsPageSize = 20
	if got := Apply(users, Query{}, p); len(got) != 20 {
		t.Fatalf("page size 20, got %d", len(got))
	}
}

func TestTrafficDescIsNonIncreasing(t *testing.T) {
	got := Apply(sampleUsers(), Query{Sort: "traffic_desc"}, prefs.Defaults())
	for i := 1; i < len(got); i++ {
		if got[i].Total > got[i-1].Total {
			t.Fatalf("not sorted at %d: %v", i, ids(got))
		}
	}
}

func TestTopUsersAndSuggestion(t *testing.T) {
	users := sampleUsers()
	if got := ids(TopUsers(users, 2)); !equalIDs(got, []int64{1002, 1001}) {
		t.Fatalf("top = %v", got)
	}
	if users[0].UserID != 1001 {
		t.Fatal("TopUsers modified input")
	}
	if got := SuggestNextUserID(users); got != 1005 {
		t.Fatalf("suggest = %d", got)
	}
	if got := SuggestNextUserID(nil); got != 1001 {
		t.Fatalf("suggest empty = %d", got)
	}
	if got := SuggestNextUserID([]model.User{{UserID: 7}}); got != 1001 {
		t.Fatalf("suggest small ids = %d", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
		{3 << 50, "3072.00 TB"},
		{-5, "0 B"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOnlineLabel(t *testing.T) {
	if OnlineLabel(model.User{Online: true}) != "common.unknown" {
		t.Fatal("unsupported should be unknown")
	}
	if OnlineLabel(model.User{Online: true, OnlineSupported: true}) != "common.online" {
		t.Fatal("online")
	}
}
