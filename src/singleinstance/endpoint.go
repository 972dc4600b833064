package singleinstance

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// AppName prefixes every endpoint name.
const AppName = "infinitecopy"

// Endpoint is the rendezvous point of one user session.
type Endpoint struct {
	// Name is "{app}[-{session}]_{user}".
	Name string
	// Dir holds the socket file on Unix. Named pipes ignore it.
	Dir string
}

// EndpointName derives the endpoint name. It is the only place the format is defined.
func EndpointName(app, session, username string) string {
	name := app
	if session != "" {
		name += "-" + session
	}
	return name + "_" + sanitizeUser(username)
}

// NewEndpoint returns the endpoint of the current user for session. An empty dir selects
// the default socket directory.
func NewEndpoint(session, dir string) Endpoint {
	if dir == "" {
		dir = DefaultSocketDir()
	}
	return Endpoint{Name: EndpointName(AppName, session, currentUser()), Dir: dir}
}

// DefaultSocketDir returns $XDG_RUNTIME_DIR, falling back to the temp directory.
func DefaultSocketDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// socketPath is where the Unix listener lives.
func (e Endpoint) socketPath() string {
	return filepath.Join(e.Dir, e.Name)
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "unknown"
}

// sanitizeUser drops path separators, which Windows account names carry as DOMAIN\user.
func sanitizeUser(name string) string {
	return strings.NewReplacer(`\`, "-", "/", "-", " ", "_").Replace(name)
}
