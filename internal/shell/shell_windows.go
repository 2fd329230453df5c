//go:build windows

package shell

import "os"

// Default resolves %COMSPEC% on every call, falling back to cmd.exe.
func Default() Shell {
	path := os.Getenv("COMSPEC")
	if path == "" {
		path = "cmd.exe"
	}
	return Shell{Path: path, Flag: "/C"}
}
