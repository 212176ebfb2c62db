package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// REPL reads one question per line and prints the agent's reply.
type REPL struct {
	Agent  *Agent
	Prompt string
	Log    logrus.FieldLogger
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// Run loops until exit/quit/q, end of input, or ctx is done. Only a read
// failure is returned as an error.
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	prompt := r.Prompt
	if prompt == "" {
		prompt = "> "
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		br := bufio.NewReader(in)
		for {
			// ReadString has no line length limit.
			l, err := br.ReadString('\n')
			if l != "" {
				select {
				case lines <- l:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if isExit(line) {
			return nil
		}

		reply := r.Agent.Respond(ctx, line)
		if r.Log != nil {
			r.Log.WithFields(logrus.Fields{
				"request_id": uuid.NewString(),
				"symbol":     reply.Symbol,
				"ok":         reply.Err == nil && reply.Quote != nil,
			}).Debug("query handled")
		}
		fmt.Fprintln(out, reply.Text)
	}
}
