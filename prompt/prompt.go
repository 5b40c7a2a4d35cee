// Package prompt asks the operator whether to continue after a
// recoverable failure.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ContinueFunc is the operator-confirmation collaborator: it presents
// msg and returns whether the workflow should continue.
type ContinueFunc func(msg string) bool

// Interactive returns a ContinueFunc reading y/n answers from in and
// writing the question to out.
func Interactive(in io.Reader, out io.Writer) ContinueFunc {
	reader := bufio.NewReader(in)
	return func(msg string) bool {
		fmt.Fprintf(out, "%s\nContinue to the next step? [y/n] ", msg)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(line), "y")
	}
}

// Terminal is the default interactive prompt on stdin/stderr.
func Terminal() ContinueFunc {
	return Interactive(os.Stdin, os.Stderr)
}

// Never declines every question, for unattended runs.
func Never() ContinueFunc {
	return func(string) bool { return false }
}

// Always accepts every question.
func Always() ContinueFunc {
	return func(string) bool { return true }
}
