package plugin

import (
	"github.com/sirupsen/logrus"

	"infinitecopy/src/formats"
)

// noAutoAdd keeps the history to explicitly added items.
type noAutoAdd struct{ Base }

func (noAutoAdd) Name() string                             { return "no-autoadd" }
func (noAutoAdd) OnClipboardChanged(formats.Payloads) bool { return false }

type ignoreSelection struct{ Base }

func (ignoreSelection) Name() string { return "ignore-selection" }

func (ignoreSelection) OnClipboardChanged(data formats.Payloads) bool {
	return data.Source() != formats.SourceSelection
}

// secretFormats are set by password managers on the secrets they copy.
var secretFormats = []string{
	formats.PasswordManagerHint,
	`application/x-qt-windows-mime;value="Clipboard Viewer Ignore"`,
}

type ignoreSecrets struct{ Base }

func (ignoreSecrets) Name() string { return "ignore-secrets" }

func (ignoreSecrets) OnClipboardChanged(data formats.Payloads) bool {
	for _, f := range secretFormats {
		if _, ok := data[f]; ok {
			logrus.Info("Ignoring copied secret")
			return false
		}
	}
	return true
}
