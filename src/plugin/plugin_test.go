package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinitecopy/src/formats"
)

type recordingPlugin struct {
	Base
	name    string
	accept  bool
	consume bool
	calls   *[]string
}

func (p recordingPlugin) Name() string { return p.name }

func (p recordingPlugin) OnClipboardChanged(formats.Payloads) bool {
	*p.calls = append(*p.calls, p.name)
	return p.accept
}

func (p recordingPlugin) OnKeyEvent(KeyEvent) bool {
	*p.calls = append(*p.calls, p.name)
	return p.consume
}

func TestChainStopsAtFirstVeto(t *testing.T) {
	var calls []string
	chain := Chain{
		recordingPlugin{name: "a", accept: true, calls: &calls},
		recordingPlugin{name: "b", accept: false, calls: &calls},
		recordingPlugin{name: "c", accept: true, calls: &calls},
	}

	assert.False(t, chain.OnClipboardChanged(formats.TextPayload([]byte("x"))))
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestChainStopsAtFirstConsumer(t *testing.T) {
	var calls []string
	chain := Chain{
		recordingPlugin{name: "a", calls: &calls},
		recordingPlugin{name: "b", consume: true, calls: &calls},
		recordingPlugin{name: "c", consume: true, calls: &calls},
	}

	assert.True(t, chain.OnKeyEvent(KeyEvent{Combo: "ctrl+v"}))
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestEmptyChainAcceptsEverything(t *testing.T) {
	var chain Chain
	assert.True(t, chain.OnClipboardChanged(formats.Payloads{}))
	assert.False(t, chain.OnKeyEvent(KeyEvent{}))
}

func TestBuiltins(t *testing.T) {
	text := formats.TextPayload([]byte("hello"))
	secret := formats.Payloads{formats.Text: []byte("hunter2"), formats.PasswordManagerHint: []byte("secret")}

	tests := []struct {
		plugin string
		data   formats.Payloads
		want   bool
	}{
		{"no-autoadd", text, false},
		{"ignore-selection", text.WithSource(formats.SourceSelection), false},
		{"ignore-selection", text.WithSource(formats.SourceClipboard), true},
		{"ignore-secrets", secret, false},
		{"ignore-secrets", text, true},
	}

	for _, tt := range tests {
		t.Run(tt.plugin, func(t *testing.T) {
			chain, err := Load([]string{tt.plugin})
			require.NoError(t, err)
			assert.Equal(t, tt.want, chain.OnClipboardChanged(tt.data))
		})
	}
}

func TestLoad(t *testing.T) {
	chain, err := Load([]string{" ignore-secrets", "", "no-autoadd"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ignore-secrets", "no-autoadd"}, chain.Names())

	_, err = Load([]string{"ignore-secrets", "telemetry"})
	assert.Error(t, err)
}
