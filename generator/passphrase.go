package generator

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var errNotTerminal = errors.New("stdin is not a terminal: run interactively to enter the passphrase")

// ReadPassphrase returns the passphrase to encrypt with. When
// PromptPassphrase is set it is read from the terminal in without echo,
// otherwise the configured value is used. Callers should clear the result.
func (c *Config) ReadPassphrase(in *os.File, prompt io.Writer) ([]byte, error) {
	if !c.PromptPassphrase {
		return []byte(c.Passphrase), nil
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNotTerminal
	}
	fmt.Fprint(prompt, "Enter keystore passphrase: ")
	defer fmt.Fprintln(prompt)

	raw, err := term.ReadPassword(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return raw, nil
}
