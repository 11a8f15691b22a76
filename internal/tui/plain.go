package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PlainIO implements IO using plain terminal output (fmt.Print / bufio.Scanner).
// Used when TUI mode is disabled or the terminal does not support raw mode.
type PlainIO struct {
	scanner *bufio.Scanner
	tokens  int
}

var _ IO = (*PlainIO)(nil)

// NewPlainIO creates a PlainIO that reads from stdin.
func NewPlainIO() *PlainIO {
	s := bufio.NewScanner(os.Stdin)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &PlainIO{scanner: s}
}

func (p *PlainIO) ReadInput() (string, error) {
	fmt.Print("\n> ")
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *PlainIO) UserMessage(_ string) {
	// Plain terminal: the user already sees what they typed.
}

func (p *PlainIO) ThinkingStart() {
	fmt.Println() // blank line before the reply begins
}

func (p *PlainIO) Assistant(text string) {
	fmt.Println(text)
}

func (p *PlainIO) SystemMessage(text string) {
	fmt.Println(text)
}

func (p *PlainIO) Error(msg string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
}

func (p *PlainIO) SetSession(_ string) {}

func (p *PlainIO) SetTokens(n int) {
	p.tokens = n
}
