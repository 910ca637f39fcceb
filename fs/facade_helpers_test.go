package fs

import (
	"reflect"
	"testing"
)

func TestPyStrEscapesQuoteAndBackslash(t *testing.T) {
	got := pyStr(`it's a \path`)
	want := `'it\'s a \\path'`
	if got != want {
		t.Errorf("pyStr = %q, want %q", got, want)
	}
}

func TestPyBool(t *testing.T) {
	if pyBool(true) != "True" {
		t.Errorf("pyBool(true) = %q, want True", pyBool(true))
	}
	if pyBool(false) != "False" {
		t.Errorf("pyBool(false) = %q, want False", pyBool(false))
	}
}

func TestParsePyStringList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"[]", nil},
		{"['a']", []string{"a"}},
		{"['a', 'b', 'c']", []string{"a", "b", "c"}},
		{`['it\'s', 'plain']`, []string{"it's", "plain"}},
	}
	for _, c := range cases {
		got, err := parsePyStringList(c.in)
		if err != nil {
			t.Fatalf("parsePyStringList(%q): %v", c.in, err)
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("parsePyStringList(%q) = %#v, want %#v", c.in, got, c.want)
		}
	}
}

func TestParsePyStringListRejectsMalformed(t *testing.T) {
	if _, err := parsePyStringList("not a list"); err == nil {
		t.Error("expected an error for a non-list string")
	}
}

func TestSplitTopLevelIgnoresSeparatorInsideQuotes(t *testing.T) {
	got := splitTopLevel(`'a,b', 'c'`, ',')
	want := []string{`'a,b'`, ` 'c'`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitTopLevel = %#v, want %#v", got, want)
	}
}

func TestPathTypeString(t *testing.T) {
	cases := []struct {
		pt   PathType
		want string
	}{
		{Absent, "absent"},
		{File, "file"},
		{Dir, "dir"},
	}
	for _, c := range cases {
		if got := c.pt.String(); got != c.want {
			t.Errorf("%v.String() = %q, want %q", int(c.pt), got, c.want)
		}
	}
}
