package cache

import (
	"net/url"
	"testing"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "path only",
			key:  Key{Path: "/repos/octo/demo/issues"},
			want: "gh:repos/octo/demo/issues",
		},
		{
			name: "query params sorted",
			key: Key{
				Path: "/repos/octo/demo/issues",
				Query: url.Values{
					"state":    {"all"},
					"page":     {"1"},
					"per_page": {"100"},
				},
			},
			want: "gh:repos/octo/demo/issues:page=1:per_page=100:state=all",
		},
		{
			name: "empty key",
			key:  Key{},
			want: "gh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyString_Deterministic(t *testing.T) {
	key := Key{
		Path: "/repos/o/r/issues",
		Query: url.Values{
			"direction": {"desc"},
			"sort":      {"created"},
			"per_page":  {"100"},
			"page":      {"2"},
			"state":     {"all"},
		},
	}

	first := key.String()
	for i := 0; i < 50; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", first, got)
		}
	}
}

func TestKeyForURL(t *testing.T) {
	key := KeyForURL("https://api.github.com/repos/octo/demo/issues?per_page=100&page=1&state=all")

	if key.Path != "/repos/octo/demo/issues" {
		t.Errorf("Path = %q", key.Path)
	}
	if key.Query.Get("per_page") != "100" {
		t.Errorf("per_page = %q", key.Query.Get("per_page"))
	}

	want := "gh:repos/octo/demo/issues:page=1:per_page=100:state=all"
	if got := key.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestKeyForURL_DistinctPages(t *testing.T) {
	page1 := KeyForURL("https://api.github.com/repos/o/r/issues?per_page=100&page=1")
	page2 := KeyForURL("https://api.github.com/repos/o/r/issues?per_page=100&page=2")

	if page1.String() == page2.String() {
		t.Error("Distinct pages produced identical cache keys")
	}
}
