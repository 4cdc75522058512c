package arbor

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize bounds a single user message in characters.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "ARBOR_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrEmptyInput    = errors.New("input is empty after cleaning")
)

// zeroWidthJoiner glues emoji sequences together and survives cleaning.
const zeroWidthJoiner = '\u200d'

// InputPolicy describes how user messages are cleaned before a turn.
type InputPolicy struct {
	// MaxChars is the largest accepted message, counted in runes.
	MaxChars int
}

// DefaultInputPolicy returns the policy used by SanitizeInput, honoring
// EnvMaxInputSize when it holds a positive integer.
func DefaultInputPolicy() InputPolicy {
	p := InputPolicy{MaxChars: DefaultMaxInputSize}
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			p.MaxChars = n
		}
	}
	return p
}

// Clean validates a message and returns the text handed to the dialogue
// engine. Line endings become "\n", control and invisible formatting
// characters are dropped, and surrounding whitespace is trimmed. Oversized
// messages are rejected rather than truncated.
func (p InputPolicy) Clean(input string) (string, error) {
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if n := utf8.RuneCountInString(input); p.MaxChars > 0 && n > p.MaxChars {
		return "", fmt.Errorf("%w: chars=%d limit=%d", ErrInputTooLarge, n, p.MaxChars)
	}

	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.Map(cleanRune, input)
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}
	return input, nil
}

// SanitizeInput cleans a message with DefaultInputPolicy.
func SanitizeInput(input string) (string, error) {
	return DefaultInputPolicy().Clean(input)
}

// cleanRune maps a rune to its cleaned form, or -1 to drop it.
func cleanRune(r rune) rune {
	switch {
	case r == '\n' || r == '\t':
		return r
	case r == '\r':
		return '\n'
	case unicode.IsControl(r):
		return -1
	case unicode.Is(unicode.Cf, r) && r != zeroWidthJoiner:
		return -1
	}
	return r
}
