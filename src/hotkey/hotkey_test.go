package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Ctrl+Alt+Q", []string{"ctrl", "alt", "q"}},
		{"Ctrl+Shift+V", []string{"ctrl", "shift", "v"}},
		{"control + alt + e", []string{"ctrl", "alt", "e"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Ctrl+Win+E", []string{"ctrl", "cmd", "e"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{"Meta+Return", []string{"cmd", "enter"}},
		{"Ctrl++Escape", []string{"ctrl", "esc"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseHotkey(tt.input))
		})
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse("Ctrl+Banana")
	assert.Error(t, err)

	_, err = Parse(" + ")
	assert.Error(t, err)

	keys, err := Parse("Ctrl+Shift+V")
	assert.NoError(t, err)
	assert.Equal(t, []string{"ctrl", "shift", "v"}, keys)
}
