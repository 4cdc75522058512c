package arbor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Runner drives a line-based conversation with the engine over the provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
	// Prompt is printed before each read unless Headless is set.
	Prompt string
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner reading from in and writing to out.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out, Prompt: "> "}
}

// Run starts (or resumes) sessionID and exchanges turns until the session
// completes, the input ends, or the user types exit/quit. It returns the id of
// the session used.
func (r *Runner) Run(ctx context.Context, engine *Engine, sessionID string) (string, error) {
	if r.Input == nil {
		return "", errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return "", errors.New("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)

	res, err := engine.SessionInfo(ctx, sessionID)
	if err != nil || sessionID == "" {
		res, err = engine.StartSession(ctx, sessionID)
		if err != nil {
			return "", fmt.Errorf("start session: %w", err)
		}
	}
	sessionID = res.SessionID

	if !r.Headless {
		fmt.Fprintf(r.Output, "--- Arbor (session %s, node %s) ---\n", sessionID, res.CurrentNode)
	}

	for !res.SessionComplete {
		if err := ctx.Err(); err != nil {
			return sessionID, err
		}
		if !r.Headless {
			fmt.Fprint(r.Output, r.Prompt)
		}

		text, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return sessionID, fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)
		if input == "" && errors.Is(err, io.EOF) {
			break
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(r.Output, "Bye!")
			break
		}
		if input == "" {
			continue
		}
		clean, sErr := SanitizeInput(input)
		if sErr != nil {
			fmt.Fprintf(r.Output, "[input rejected: %v]\n", sErr)
			if errors.Is(err, io.EOF) {
				break
			}
			continue
		}

		next, turnErr := engine.ProcessTurn(ctx, sessionID, clean)
		if next == nil {
			return sessionID, turnErr
		}
		res = next
		r.print(res.Response)
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return sessionID, nil
}

func (r *Runner) print(msg string) {
	output := msg
	if r.Renderer != nil {
		if rendered, err := r.Renderer(msg); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))
}
