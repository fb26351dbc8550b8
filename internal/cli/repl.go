package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/dishql/dishql/internal/agent"
	"github.com/dishql/dishql/internal/schema"
)

const banner = `dishql: ask questions about the menu in plain language.
Type \help for commands, quit to leave.`

const helpText = `Commands:
  \help      show this help
  \schema    list the tables the agent may query
  \history   show the questions answered this session
  \sql       show the statement behind the last answer
  \clear     forget the conversation so far
  quit       exit (also: exit, Ctrl-D)`

type repl struct {
	agent   *agent.Agent
	catalog *schema.Catalog
	stdout  io.Writer
	stderr  io.Writer
}

func (r *repl) run(ctx context.Context) int {
	reader, err := readline.NewEx(&readline.Config{
		Prompt:          "dishql> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "bye",
	})
	if err != nil {
		_, _ = fmt.Fprintf(r.stderr, "cannot start prompt: %v\n", err)
		return 1
	}
	defer func() { _ = reader.Close() }()

	_, _ = fmt.Fprintln(r.stdout, banner)
	for {
		line, err := reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl-C clears the line, a second one on an empty line quits.
			if len(line) == 0 {
				return 0
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return 0
		}
		if err != nil {
			_, _ = fmt.Fprintf(r.stderr, "read input: %v\n", err)
			return 1
		}
		if r.handleLine(ctx, line) {
			return 0
		}
	}
}

// handleLine dispatches one line of input and reports whether the session
// should end.
func (r *repl) handleLine(ctx context.Context, line string) (quit bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "quit" || line == "exit":
		return true
	case strings.HasPrefix(line, `\`):
		r.handleCommand(line)
		return false
	default:
		_ = r.ask(ctx, line)
		return false
	}
}

func (r *repl) handleCommand(command string) {
	switch command {
	case `\help`:
		_, _ = fmt.Fprintln(r.stdout, helpText)
	case `\schema`:
		for _, table := range r.catalog.Tables() {
			_, _ = fmt.Fprintf(r.stdout, "%s (%s)\n", table.Name, strings.Join(table.Columns, ", "))
		}
	case `\history`:
		turns := r.agent.History().Turns()
		if len(turns) == 0 {
			_, _ = fmt.Fprintln(r.stdout, "(no history)")
			return
		}
		for i, turn := range turns {
			_, _ = fmt.Fprintf(r.stdout, "%d. %s -- %s\n", i+1, turn.Question, turn.Summary)
		}
	case `\sql`:
		turns := r.agent.History().Turns()
		if len(turns) == 0 {
			_, _ = fmt.Fprintln(r.stdout, "(no history)")
			return
		}
		_, _ = fmt.Fprintln(r.stdout, turns[len(turns)-1].SQL)
	case `\clear`:
		r.agent.History().Clear()
		_, _ = fmt.Fprintln(r.stdout, "History cleared.")
	default:
		_, _ = fmt.Fprintf(r.stdout, "Unknown command %s, try \\help.\n", command)
	}
}

// ask answers one question and prints either the rendered table or a
// friendly error. The returned error only signals one-shot mode to exit
// non-zero.
func (r *repl) ask(ctx context.Context, question string) error {
	answer, err := r.agent.Ask(ctx, question)
	if err != nil {
		_, _ = fmt.Fprintln(r.stdout, friendlyMessage(err))
		return err
	}
	_, _ = fmt.Fprintf(r.stdout, "\n%s\n%s\n", answer.SQL, answer.Rendered)
	return nil
}
