package snipctl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IO is the terminal used by commands.
type IO interface {
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}

// Stdio reads from stdin and writes prompts to out.
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdio returns an IO bound to the process terminal.
func NewStdio(out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(os.Stdin), out: out}
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword reads without echo when stdin is a terminal and falls back
// to a plain line read for pipes.
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return s.ReadInput(prompt)
	}

	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(fd)
	s.Printf("\n")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
