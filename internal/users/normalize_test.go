package users

import "testing"

func TestSplitName(t *testing.T) {
	cases := []struct {
		name  string
		first string
		last  string
	}{
		{"", "", ""},
		{"Cher", "Cher", ""},
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"  Ada   Lovelace  King ", "Ada", "Lovelace King"},
	}
	for _, tc := range cases {
		first, last := SplitName(tc.name)
		if first != tc.first || last != tc.last {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tc.name, first, last, tc.first, tc.last)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A@Foo.COM "); got != "a@foo.com" {
		t.Fatalf("NormalizeEmail = %q, want a@foo.com", got)
	}
	if got := NormalizeEmail("   "); got != "" {
		t.Fatalf("NormalizeEmail of blank = %q, want empty", got)
	}
}
