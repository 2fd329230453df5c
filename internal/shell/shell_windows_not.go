//go:build !windows

package shell

func Default() Shell {
	return Shell{Path: "/bin/sh", Flag: "-c"}
}
