package singleinstance

import (
	"context"
	"time"
)

// IsRunning reports whether a server accepts connections on ep. The probe connection
// closes without sending a command, which the server ignores.
func IsRunning(ctx context.Context, ep Endpoint, timeout time.Duration) bool {
	c, err := Connect(ctx, ep, timeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}
