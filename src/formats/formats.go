// Package formats names the clipboard representations the application captures and the
// internal bookkeeping formats it attaches to them.
package formats

import (
	"sort"
	"strings"
)

const (
	Text = "text/plain"
	HTML = "text/html"
	PNG  = "image/png"
	SVG  = "image/svg"

	// PrefixInternal marks bookkeeping formats that never take part in deduplication.
	PrefixInternal = "application/x-infinitecopy-"
	// PrefixUser marks formats attached by users or plugins; they are regular data.
	PrefixUser = "application/x-infinitecopyuser-"

	Owner  = PrefixInternal + "owner"
	Source = PrefixInternal + "source"

	// PasswordManagerHint is set by password managers on secrets they copy.
	PasswordManagerHint = "x-kde-passwordManagerHint"
)

// Sources a capture can come from.
const (
	SourceClipboard = "clipboard"
	SourceSelection = "selection"
)

// Captured lists the formats the monitor reads, in preference order.
var Captured = []string{Text, HTML, PNG, SVG}

// Payloads maps a format name to its raw bytes.
type Payloads map[string][]byte

// IsInternal reports whether format is bookkeeping data.
func IsInternal(format string) bool {
	return strings.HasPrefix(format, PrefixInternal)
}

// TextPayload returns a payload map holding only plain text.
func TextPayload(text []byte) Payloads {
	return Payloads{Text: text}
}

// Source returns the capture source recorded in p, or "".
func (p Payloads) Source() string {
	return string(p[Source])
}

// WithSource returns a copy of p carrying the source marker.
func (p Payloads) WithSource(source string) Payloads {
	c := p.Clone()
	c[Source] = []byte(source)
	return c
}

// Clone returns a shallow copy of the map; byte slices are shared.
func (p Payloads) Clone() Payloads {
	c := make(Payloads, len(p)+1)
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Names returns the sorted format names, internal formats included.
func (p Payloads) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Data returns the non-internal formats in sorted order.
func (p Payloads) Data() []string {
	names := make([]string, 0, len(p))
	for _, k := range p.Names() {
		if !IsInternal(k) {
			names = append(names, k)
		}
	}
	return names
}
