package frontend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Siroj42/heinzelmann/internal/actor"
)

// Console evaluates lines read from in and prints each result to out.
type Console struct {
	in     io.Reader
	out    io.Writer
	prompt string
	eval   Evaluator
	logger Logger
}

// NewConsole creates a Console. An empty prompt prints none.
func NewConsole(in io.Reader, out io.Writer, prompt string, ev Evaluator, logger Logger) *Console {
	return &Console{in: in, out: out, prompt: prompt, eval: ev, logger: orNoop(logger)}
}

// Run reads until end of input or until ctx is cancelled. Blank lines are
// skipped. End of input ends the console, not the hub.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	// The reader cannot be interrupted, so it lives on its own goroutine.
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		c.showPrompt()

		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("reading console input: %w", err)
			}
			c.logger.Info("console input closed")
			return nil
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			resp, err := c.eval.Eval(ctx, actor.SourceConsole, line)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("console evaluation: %w", err)
			}
			c.print(resp)
		}
	}
}

func (c *Console) showPrompt() {
	if c.prompt != "" {
		fmt.Fprint(c.out, c.prompt)
	}
}

func (c *Console) print(resp actor.Response) {
	switch resp.Kind {
	case actor.Return:
		fmt.Fprintln(c.out, resp.Text)
	case actor.Error:
		fmt.Fprintln(c.out, "Error:", resp.Text)
	}
}
