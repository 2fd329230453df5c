// Package shell maps command tokens onto the platform shell invocation.
package shell

import "strings"

// Shell is a resolved shell invocation: Path Flag <command line>.
type Shell struct {
	Path string
	Flag string
}

// Wrap returns the executable and the argv (without argv[0]) running tokens
// as a single shell line. Tokens are joined by a single space, the shell
// interprets quoting, pipes and redirections.
func (s Shell) Wrap(tokens []string) (string, []string) {
	return s.Path, []string{s.Flag, strings.Join(tokens, " ")}
}

// Command wraps tokens with the default shell of the platform.
func Command(tokens []string) (string, []string) {
	return Default().Wrap(tokens)
}
