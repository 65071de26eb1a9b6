package cache

import "testing"

func TestBuildKeyFormat(t *testing.T) {
	testCases := []struct {
		name    string
		version int64
		locale  string
		group   string
		tag     string
		want    string
	}{
		{"defaults", 1, "en", "", "", "v1:content:en:group:all:tag:all"},
		{"group", 3, "fr", "auth.login", "", "v3:content:fr:group:auth.login:tag:all"},
		{"tag", 2, "en", "", "mobile", "v2:content:en:group:all:tag:mobile"},
		{"literal all", 1, "en", "all", "all", "v1:content:en:group:%61ll:tag:%61ll"},
		{"colon escaped", 1, "en", "a:b", "", "v1:content:en:group:a%3Ab:tag:all"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildKey(tc.version, tc.locale, tc.group, tc.tag); got != tc.want {
				t.Fatalf("BuildKey = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildKeyDeterministic(t *testing.T) {
	a := BuildKey(4, "de", "menu", "web")
	b := BuildKey(4, "de", "menu", "web")
	if a != b {
		t.Fatalf("identical arguments produced %q and %q", a, b)
	}
}

func TestBuildKeyInjective(t *testing.T) {
	versions := []int64{1, 2, 11}
	locales := []string{"en", "fr", "en:x"}
	values := []string{"", "all", "a", "a:b", "a%3Ab", "%61ll", ":", "tag:all", "é"}

	seen := make(map[string][4]string)
	for _, v := range versions {
		for _, l := range locales {
			for _, g := range values {
				for _, tg := range values {
					key := BuildKey(v, l, g, tg)
					tuple := [4]string{string(rune('0' + v)), l, g, tg}
					if prev, dup := seen[key]; dup {
						t.Fatalf("collision on %q between %v and %v", key, prev, tuple)
					}
					seen[key] = tuple
				}
			}
		}
	}
}
