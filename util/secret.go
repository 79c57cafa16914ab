package util

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadSecret prints prompt to stderr and reads a line from the terminal
// without echoing it.  It is a variable so tests can replace it.
var ReadSecret = func(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	return term.ReadPassword(int(os.Stdin.Fd()))
}
