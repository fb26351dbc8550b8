// Package agent runs one question through the translate -> gate ->
// execute -> format pipeline.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dishql/dishql/internal/format"
	"github.com/dishql/dishql/internal/gate"
	"github.com/dishql/dishql/internal/nl2sql"
	"github.com/dishql/dishql/internal/observability"
	"github.com/dishql/dishql/internal/query"
	"github.com/dishql/dishql/internal/session"
)

// Hinter resolves fuzzy proper nouns in a question to known stored values.
type Hinter interface {
	Hints(ctx context.Context, question string, k int) ([]string, error)
}

type Dependencies struct {
	Translator nl2sql.Translator
	Gate       *gate.Gate
	Engine     query.Engine
	History    *session.History
	Hinter     Hinter
	Logger     *slog.Logger

	Tables       []nl2sql.TableContext
	HintCount    int
	RowLimit     int
	QueryTimeout time.Duration
}

type Agent struct {
	deps Dependencies
}

type Answer struct {
	SQL       string
	Rendered  string
	RowCount  int
	Truncated bool
	Duration  time.Duration
}

func New(deps Dependencies) (*Agent, error) {
	if deps.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if deps.Gate == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.History == nil {
		deps.History = session.NewHistory(0)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Agent{deps: deps}, nil
}

// Ask answers one question. Statement text is never logged here; only
// verdicts, reason codes and result shapes are.
func (a *Agent) Ask(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("question is required")
	}

	hints := a.resolveHints(ctx, question)

	translated, err := a.deps.Translator.Translate(ctx, nl2sql.Request{
		Question: question,
		Tables:   a.deps.Tables,
		History:  a.deps.History.Turns(),
		Hints:    hints,
	})
	if err != nil {
		observability.ObserveTranslation("error")
		return Answer{}, &TranslationError{Err: err}
	}
	observability.ObserveTranslation("ok")

	verdict := a.deps.Gate.Check(translated.SQL)
	observability.ObserveGateVerdict(verdict.Allowed, string(verdict.Reason))
	if !verdict.Allowed {
		a.deps.Logger.Info("statement rejected",
			slog.String("reason", string(verdict.Reason)),
			slog.String("detail", verdict.Detail),
		)
		return Answer{}, &RejectedError{Reason: verdict.Reason, Detail: verdict.Detail}
	}

	queryCtx := ctx
	if a.deps.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, a.deps.QueryTimeout)
		defer cancel()
	}

	result, err := a.deps.Engine.Execute(queryCtx, query.Request{
		SQL:      verdict.Statement,
		RowLimit: a.deps.RowLimit,
	})
	if err != nil {
		observability.ObserveQuery("error", 0)
		return Answer{}, &ExecutionError{Err: err}
	}
	observability.ObserveQuery("ok", result.Duration)

	summary := fmt.Sprintf("%d rows in %s", len(result.Rows), result.Duration.Round(time.Millisecond))
	a.deps.History.Append(nl2sql.Turn{
		Question: question,
		SQL:      verdict.Statement,
		Summary:  summary,
	})
	a.deps.Logger.Debug("question answered",
		slog.Int("rows", len(result.Rows)),
		slog.Bool("truncated", result.Truncated),
		slog.String("duration", result.Duration.String()),
	)

	return Answer{
		SQL:       verdict.Statement,
		Rendered:  format.Table(result),
		RowCount:  len(result.Rows),
		Truncated: result.Truncated,
		Duration:  result.Duration,
	}, nil
}

// resolveHints is best-effort: a failing hinter degrades to no hints.
func (a *Agent) resolveHints(ctx context.Context, question string) []string {
	if a.deps.Hinter == nil || a.deps.HintCount <= 0 {
		return nil
	}
	hints, err := a.deps.Hinter.Hints(ctx, question, a.deps.HintCount)
	if err != nil {
		a.deps.Logger.Warn("hint lookup failed", slog.Any("error", err))
		return nil
	}
	return hints
}

// History exposes the session log for the REPL's \history command.
func (a *Agent) History() *session.History {
	return a.deps.History
}
