package apexsort

import (
	"slices"
	"testing"
)

func TestApex(t *testing.T) {
	for _, c := range []struct {
		rule string
		want string
	}{
		{"www.example.com", "example.com"},
		{".cdn.example.co.uk", "example.co.uk"},
		{"example.com", "example.com"},
		{".com", "com"},
		{"co.uk", "co.uk"},
	} {
		if got := Apex(c.rule); got != c.want {
			t.Errorf("Apex(%q) = %q, want %q", c.rule, got, c.want)
		}
	}
}

func TestSort(t *testing.T) {
	rules := []string{
		"www.example.com",
		".skk.moe",
		"blog.cdn.example.com",
		".example.com",
		"a.example.org",
		"example.com",
		"blog.skk.moe",
	}
	Sort(rules)
	want := []string{
		".example.com",
		"example.com",
		"www.example.com",
		"blog.cdn.example.com",
		"a.example.org",
		".skk.moe",
		"blog.skk.moe",
	}
	if !slices.Equal(rules, want) {
		t.Errorf("Sort() = %q, want %q", rules, want)
	}
}

func TestSorterReuse(t *testing.T) {
	s := NewSorter(4)
	a := []string{"b.example.net", "a.example.net", ".example.net"}
	b := slices.Clone(a)
	s.Sort(a)
	slices.Reverse(b)
	s.Sort(b)
	if !slices.Equal(a, b) {
		t.Errorf("Sort() results differ: %q and %q", a, b)
	}
	if want := []string{".example.net", "a.example.net", "b.example.net"}; !slices.Equal(a, want) {
		t.Errorf("Sort() = %q, want %q", a, want)
	}
}
