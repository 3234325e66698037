package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// getPassword prints prompt to w and reads a password without echo.
func getPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if len(pw) == 0 {
		return nil, errors.New("empty password")
	}
	return pw, nil
}

// ask prints prompt and reads lines until one matches a choice, ignoring
// case and surrounding space. It returns the lower-cased choice.
func ask(r *bufio.Reader, w io.Writer, prompt string, choices ...string) (string, error) {
	for {
		if _, err := fmt.Fprint(w, prompt+" "); err != nil {
			return "", err
		}
		line, err := r.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if slices.Contains(choices, answer) {
			return answer, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("no answer given")
			}
			return "", err
		}
		fmt.Fprintf(w, "Please answer %s.\n", strings.Join(choices, " or "))
	}
}
