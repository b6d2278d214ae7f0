//go:build !windows

package presence

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// Sandboxed Discord builds place the socket in a subdirectory of the runtime dir.
var socketSubdirs = []string{"", "app/com.discordapp.Discord", "snap.discord"}

// socketCandidates lists every discord-ipc-N path in the order Discord's
// own SDK probes them.
func socketCandidates() []string {
	var dirs []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := os.Getenv(env); v != "" {
			dirs = append(dirs, v)
		}
	}
	dirs = append(dirs, "/tmp")

	var paths []string
	for _, dir := range dirs {
		for _, sub := range socketSubdirs {
			for i := 0; i < 10; i++ {
				paths = append(paths, filepath.Join(dir, sub, fmt.Sprintf("discord-ipc-%d", i)))
			}
		}
	}
	return paths
}

func dialIPC(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	for _, path := range socketCandidates() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
	}
	return nil, fmt.Errorf("no discord ipc socket found (is Discord running?)")
}
