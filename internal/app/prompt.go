package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for input. Secrets are read without echo when
// input is a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // -1 when input is not a terminal
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

// Text prints prompt and reads one line. A final line without a newline
// is accepted.
func (p *Prompter) Text(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	return p.readLine()
}

// Secret is Text without echo.
func (p *Prompter) Secret(prompt string) (string, error) {
	if p.fd < 0 {
		return p.Text(prompt)
	}

	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return "", err
	}
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
