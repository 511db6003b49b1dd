package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errNoInput = errors.New("no input")

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", errNoInput
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// ticker asks until a non-empty symbol is entered.
func (p *prompter) ticker(label string) (string, error) {
	for {
		s, err := p.line(label)
		if err != nil {
			return "", err
		}
		if s != "" {
			return strings.ToUpper(s), nil
		}
		fmt.Fprintln(p.out, "Please enter a ticker symbol.")
	}
}

// positiveInt asks until a whole number greater than zero is entered.
func (p *prompter) positiveInt(label string) (int, error) {
	for {
		s, err := p.line(label)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err == nil && n > 0 {
			return n, nil
		}
		fmt.Fprintf(p.out, "%q is not a positive whole number.\n", s)
	}
}

// wait blocks until Enter or end of input.
func (p *prompter) wait(label string) {
	_, _ = p.line(label)
}
