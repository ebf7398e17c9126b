// File: internal/transport/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"go.uber.org/zap"
)

// EndpointPath resolves a named endpoint to its socket path. Bare names live
// in the temp dir; anything containing a path separator is used as is.
func EndpointPath(name string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(os.TempDir(), name)
}

// Dial connects to the named endpoint, failing with api.ErrEndpointUnreachable
// if no listener answers within timeout.
func Dial(name string, timeout time.Duration, logger *zap.Logger) (*Channel, error) {
	path := EndpointPath(name)
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", api.ErrEndpointUnreachable, path, err)
	}
	return Wrap(conn, logger), nil
}

// Listen binds the named endpoint. A stale socket file left by a crashed
// consumer is removed first.
func Listen(name string) (net.Listener, error) {
	path := EndpointPath(name)
	if info, err := os.Lstat(path); err == nil && info.Mode()&fs.ModeSocket != 0 {
		if c, err := net.DialTimeout("unix", path, 100*time.Millisecond); err == nil {
			c.Close()
			return nil, fmt.Errorf("%w: endpoint %s is in use", api.ErrAlreadyExists, path)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale endpoint %s: %w", path, err)
		}
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return ln, nil
}
