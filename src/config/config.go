// Package config resolves the server and client settings.
//
// Sources, lowest to highest precedence: built-in defaults, config.yaml in the per-user
// config directory, the process environment (seeded from a .env file), and LoadOptions.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	AppName = "infinitecopy"

	// EnvFileVar names a .env file used when none sits next to the executable.
	EnvFileVar = "INFINITECOPY_ENV"
	// ConfigFileVar overrides the config.yaml location.
	ConfigFileVar = "INFINITECOPY_CONFIG"
)

// LoadOptions carry command-line overrides.
type LoadOptions struct {
	Session    string
	HasSession bool
	NoPaste    bool
	// ConfigFile and EnvFile replace the default file locations when set.
	ConfigFile string
	EnvFile    string
}

type Config struct {
	Session           string
	DataDir           string
	SocketDir         string
	ConnectTimeout    time.Duration
	WriteTimeout      time.Duration
	EnableFileLogging bool
	Hotkey            string
	EnableTray        bool
	EnablePaste       bool
	Monitor           bool
	ClipboardDelay    time.Duration
	SelectionDelay    time.Duration
	Plugins           []string
	MaxItems          int
}

type setting struct {
	key  string // yaml key
	env  string
	kind byte // 's' string, 'i' int, 'b' bool, 'l' list
}

var settings = []setting{
	{"session", "INFINITECOPY_SESSION", 's'},
	{"data_dir", "INFINITECOPY_DATA_DIR", 's'},
	{"socket_dir", "INFINITECOPY_SOCKET_DIR", 's'},
	{"connect_timeout_ms", "CONNECT_TIMEOUT_MS", 'i'},
	{"write_timeout_ms", "WRITE_TIMEOUT_MS", 'i'},
	{"file_logging", "ENABLE_FILE_LOGGING", 'b'},
	{"hotkey", "HOTKEY", 's'},
	{"tray", "ENABLE_TRAY", 'b'},
	{"paste", "ENABLE_PASTE", 'b'},
	{"monitor", "MONITOR_CLIPBOARD", 'b'},
	{"clipboard_delay_ms", "CLIPBOARD_DELAY_MS", 'i'},
	{"selection_delay_ms", "SELECTION_DELAY_MS", 'i'},
	{"plugins", "PLUGINS", 'l'},
	{"max_items", "MAX_ITEMS", 'i'},
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"session":            "",
		"data_dir":           defaultDataDir(),
		"socket_dir":         "",
		"connect_timeout_ms": 4000,
		"write_timeout_ms":   10000,
		"file_logging":       false,
		"hotkey":             "",
		"tray":               false,
		"paste":              true,
		"monitor":            true,
		"clipboard_delay_ms": 500,
		"selection_delay_ms": 1000,
		"plugins":            []string{},
		"max_items":          0,
	}
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	if envPath := resolveEnvPath(opts.EnvFile); envPath != "" {
		// Variables already set in the process win over the file.
		if err := godotenv.Load(envPath); err != nil {
			logrus.WithError(err).WithField("path", envPath).Warn("Failed to read env file")
		}
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if path := resolveConfigFile(opts.ConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		logrus.WithField("path", path).Debug("Config file loaded")
	}

	if err := k.Load(confmap.Provider(environment(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "load environment")
	}

	cfg := &Config{
		Session:           k.String("session"),
		DataDir:           k.String("data_dir"),
		SocketDir:         k.String("socket_dir"),
		ConnectTimeout:    millis(k.Int("connect_timeout_ms")),
		WriteTimeout:      millis(k.Int("write_timeout_ms")),
		EnableFileLogging: k.Bool("file_logging"),
		Hotkey:            k.String("hotkey"),
		EnableTray:        k.Bool("tray"),
		EnablePaste:       k.Bool("paste"),
		Monitor:           k.Bool("monitor"),
		ClipboardDelay:    millis(k.Int("clipboard_delay_ms")),
		SelectionDelay:    millis(k.Int("selection_delay_ms")),
		Plugins:           k.Strings("plugins"),
		MaxItems:          k.Int("max_items"),
	}

	if opts.HasSession {
		cfg.Session = opts.Session
	}
	if opts.NoPaste {
		cfg.EnablePaste = false
	}
	if cfg.MaxItems < 0 {
		cfg.MaxItems = 0
	}
	return cfg, nil
}

// environment collects the variables that are set, converted to the yaml key types.
// Unparsable values are ignored.
func environment() map[string]interface{} {
	values := make(map[string]interface{})
	for _, s := range settings {
		raw, ok := os.LookupEnv(s.env)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		switch s.kind {
		case 's':
			values[s.key] = raw
		case 'i':
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				logrus.WithField("var", s.env).Warn("Ignoring invalid number")
				continue
			}
			values[s.key] = n
		case 'b':
			b, err := strconv.ParseBool(raw)
			if err != nil {
				logrus.WithField("var", s.env).Warn("Ignoring invalid boolean")
				continue
			}
			values[s.key] = b
		case 'l':
			values[s.key] = splitList(raw)
		}
	}
	return values
}

func splitList(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// DatabasePath is the item database of the configured session.
func DatabasePath(cfg *Config) string {
	name := AppName + "_items"
	if cfg.Session != "" {
		name += "-" + cfg.Session
	}
	return filepath.Join(cfg.DataDir, name+".sql")
}

// EnsureDataDir creates the data directory.
func EnsureDataDir(cfg *Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return errors.Wrap(err, "create data directory")
	}
	return nil
}

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

// resolveEnvPath prefers a .env next to the executable, then the file named by
// INFINITECOPY_ENV.
func resolveEnvPath(override string) string {
	if override != "" {
		return existing(override)
	}
	if execPath, err := os.Executable(); err == nil {
		if p := existing(filepath.Join(filepath.Dir(execPath), ".env")); p != "" {
			return p
		}
	}
	if alt := os.Getenv(EnvFileVar); alt != "" {
		return existing(alt)
	}
	return ""
}

func resolveConfigFile(override string) string {
	if override != "" {
		return existing(override)
	}
	if p := os.Getenv(ConfigFileVar); p != "" {
		return existing(p)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return existing(filepath.Join(dir, AppName, "config.yaml"))
}

func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
