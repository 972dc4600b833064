// Package logutil configures the process-wide logrus logger.
package logutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogFileName = "infinitecopy.log"

	maxSizeMB   = 10
	maxBackups  = 3
	maxAgeDays  = 28
	excerptSize = 200
)

type Options struct {
	Debug       bool
	Verbose     bool
	FileLogging bool
	// Dir holds the log file.
	Dir string
	// Output receives console logs. Defaults to stderr.
	Output io.Writer
}

// Setup configures the standard logger. Console output stays off stdout, which carries
// command output. The returned function flushes and closes the log file.
func Setup(opts Options) func() {
	logger := logrus.StandardLogger()
	logger.ReplaceHooks(make(logrus.LevelHooks))

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(level(opts))

	if !opts.FileLogging {
		return func() {}
	}

	rotate := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, LogFileName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	logger.AddHook(&fileHook{rotate: rotate, formatter: &fileFormatter{}})
	return func() { _ = rotate.Close() }
}

func level(opts Options) logrus.Level {
	switch {
	case opts.Debug:
		return logrus.DebugLevel
	case opts.Verbose:
		return logrus.InfoLevel
	default:
		return logrus.WarnLevel
	}
}

type fileHook struct {
	sync.Mutex
	rotate    io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	h.Lock()
	defer h.Unlock()

	msg, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.rotate.Write(msg)
	return err
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// fileFormatter writes one line per entry with sorted fields.
type fileFormatter struct{}

func (f *fileFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %5s: %s", entry.Time.Format(time.RFC3339), strings.ToUpper(entry.Level.String()), entry.Message)
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]string, len(keys))
		for i, k := range keys {
			fields[i] = fmt.Sprintf("%s=%v", k, entry.Data[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(fields, ", "))
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// Sanitize shortens s for a log line and escapes control characters so clipboard content
// cannot break the log format.
func Sanitize(s string) string {
	cut := false
	if len(s) > excerptSize {
		s = s[:excerptSize]
		for len(s) > 0 && !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
		cut = true
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x20 || r == 0x7f:
			q := strconv.QuoteRune(r)
			b.WriteString(q[1 : len(q)-1])
		default:
			b.WriteRune(r)
		}
	}
	if cut {
		b.WriteString("...")
	}
	return b.String()
}
