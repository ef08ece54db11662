package watch

import (
	"testing"
)

func TestIsWatched(t *testing.T) {
	p := Project{Dir: "/proj", ConfigFile: "config.yml"}

	cases := map[string]bool{
		"/proj/config.yml":     true,
		"/proj/main.ts":        true,
		"/proj/lib/helper.js":  true,
		"/proj/README.md":      false,
		"/proj/build/abc.mjs":  false,
	}
	for path, want := range cases {
		if got := isWatched(p, path); got != want {
			t.Errorf("isWatched(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestProjectDirFor_PicksLongestMatchingPrefix(t *testing.T) {
	projects := map[string]*Project{
		"/a":      {Dir: "/a"},
		"/a/sub":  {Dir: "/a/sub"},
		"/b":      {Dir: "/b"},
	}

	if got := projectDirFor(projects, "/a/sub/main.ts"); got != "/a/sub" {
		t.Errorf("got %q, want /a/sub", got)
	}
	if got := projectDirFor(projects, "/a/main.ts"); got != "/a" {
		t.Errorf("got %q, want /a", got)
	}
	if got := projectDirFor(projects, "/c/main.ts"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

