package store

import (
	"strings"
	"unicode"

	"github.com/uptrace/bun"
)

// CaseMode selects how a filter compares letters.
type CaseMode int

const (
	// CaseSmart ignores case unless the needle contains an upper-case letter.
	CaseSmart CaseMode = iota
	CaseSensitive
	CaseInsensitive
)

// ParseCaseMode maps the names accepted on the command line to a mode.
func ParseCaseMode(name string) (CaseMode, bool) {
	switch strings.ToLower(name) {
	case "", "smart":
		return CaseSmart, true
	case "sensitive":
		return CaseSensitive, true
	case "insensitive":
		return CaseInsensitive, true
	}
	return CaseSmart, false
}

func (m CaseMode) String() string {
	switch m {
	case CaseSensitive:
		return "sensitive"
	case CaseInsensitive:
		return "insensitive"
	default:
		return "smart"
	}
}

// Filter restricts positional access to items whose text contains Text.
// The zero value matches everything.
type Filter struct {
	Text string
	Case CaseMode
}

// Active reports whether the filter excludes anything.
func (f Filter) Active() bool { return f.Text != "" }

func (f Filter) sensitive() bool {
	switch f.Case {
	case CaseSensitive:
		return true
	case CaseInsensitive:
		return false
	}
	for _, r := range f.Text {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// apply adds the filter condition to q. SQLite's lower() folds ASCII only, so the needle
// is folded the same way.
func (f Filter) apply(q *bun.SelectQuery) *bun.SelectQuery {
	if !f.Active() {
		return q
	}
	if f.sensitive() {
		return q.Where("instr(item.item_text, ?) > 0", f.Text)
	}
	return q.Where("instr(lower(item.item_text), ?) > 0", asciiLower(f.Text))
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
