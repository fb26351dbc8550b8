package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dishql/dishql/internal/agent"
	"github.com/dishql/dishql/internal/gate"
	"github.com/dishql/dishql/internal/nl2sql"
	"github.com/dishql/dishql/internal/query"
	"github.com/dishql/dishql/internal/schema"
	"github.com/dishql/dishql/internal/session"
)

type stubTranslator struct {
	sql string
	err error
}

func (s *stubTranslator) Translate(context.Context, nl2sql.Request) (nl2sql.Result, error) {
	if s.err != nil {
		return nl2sql.Result{}, s.err
	}
	return nl2sql.Result{SQL: s.sql, Provider: "stub", Model: "stub"}, nil
}

type stubEngine struct {
	result query.Result
	err    error
	calls  int
}

func (s *stubEngine) Execute(context.Context, query.Request) (query.Result, error) {
	s.calls++
	if s.err != nil {
		return query.Result{}, s.err
	}
	return s.result, nil
}

func newTestREPL(t *testing.T, translator *stubTranslator, engine *stubEngine) (*repl, *bytes.Buffer) {
	t.Helper()
	a, err := agent.New(agent.Dependencies{
		Translator: translator,
		Gate:       gate.New(schema.Default(), gate.ModeReadOnly),
		Engine:     engine,
		History:    session.NewHistory(10),
		RowLimit:   100,
	})
	if err != nil {
		t.Fatalf("agent.New() error = %v", err)
	}
	out := &bytes.Buffer{}
	return &repl{agent: a, catalog: schema.Default(), stdout: out, stderr: out}, out
}

func TestRunRejectsBadFlags(t *testing.T) {
	code := Run(context.Background(), []string{"-definitely-not-a-flag"}, Options{})
	if code != 2 {
		t.Fatalf("Run() = %d, want 2", code)
	}
}

func TestRunFailsWithoutCredentials(t *testing.T) {
	var stderr bytes.Buffer
	lookup := func(string) (string, bool) { return "", false }
	code := Run(context.Background(), []string{"-env-file", "does-not-exist.env"}, Options{
		Stderr: &stderr,
		Lookup: lookup,
	})
	if code != 1 {
		t.Fatalf("Run() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "SUPABASE_HOST") {
		t.Fatalf("stderr = %q, want the missing variable named", stderr.String())
	}
}

func TestHandleLineQuitWords(t *testing.T) {
	loop, _ := newTestREPL(t, &stubTranslator{sql: "SELECT 1"}, &stubEngine{})
	for _, word := range []string{"quit", "exit", "  quit  "} {
		if !loop.handleLine(context.Background(), word) {
			t.Fatalf("handleLine(%q) should quit", word)
		}
	}
	if loop.handleLine(context.Background(), "") {
		t.Fatal("blank line must not quit")
	}
}

func TestHandleLineQuestionPrintsAnswer(t *testing.T) {
	translator := &stubTranslator{sql: "SELECT name FROM dishes"}
	engine := &stubEngine{result: query.Result{
		Columns: []string{"name"},
		Rows:    [][]any{{"Paneer Tikka"}},
	}}
	loop, out := newTestREPL(t, translator, engine)

	if loop.handleLine(context.Background(), "what dishes are there?") {
		t.Fatal("a question must not quit the loop")
	}
	if engine.calls != 1 {
		t.Fatalf("engine calls = %d", engine.calls)
	}
	if !strings.Contains(out.String(), "SELECT name FROM dishes") {
		t.Fatalf("output missing statement:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Paneer Tikka") {
		t.Fatalf("output missing row:\n%s", out.String())
	}
}

func TestHandleLineRejectedQuestionStaysFriendly(t *testing.T) {
	translator := &stubTranslator{sql: "DROP TABLE dishes"}
	engine := &stubEngine{}
	loop, out := newTestREPL(t, translator, engine)

	loop.handleLine(context.Background(), "remove the dishes table")
	if engine.calls != 0 {
		t.Fatal("rejected statement must not reach the engine")
	}
	if !strings.Contains(out.String(), string(gate.ReasonMutatingStatement)) {
		t.Fatalf("output missing reason code:\n%s", out.String())
	}
	if strings.Contains(out.String(), "DROP TABLE") {
		t.Fatalf("output must not echo the statement:\n%s", out.String())
	}
}

func TestHandleCommandSchemaAndHistory(t *testing.T) {
	translator := &stubTranslator{sql: "SELECT name FROM dishes"}
	engine := &stubEngine{result: query.Result{Columns: []string{"name"}}}
	loop, out := newTestREPL(t, translator, engine)

	loop.handleCommand(`\schema`)
	if !strings.Contains(out.String(), "dish_ingredients") {
		t.Fatalf("\\schema output = %q", out.String())
	}

	out.Reset()
	loop.handleCommand(`\history`)
	if !strings.Contains(out.String(), "(no history)") {
		t.Fatalf("\\history output = %q", out.String())
	}

	loop.handleLine(context.Background(), "what dishes are there?")
	out.Reset()
	loop.handleCommand(`\history`)
	if !strings.Contains(out.String(), "what dishes are there?") {
		t.Fatalf("\\history output = %q", out.String())
	}

	out.Reset()
	loop.handleCommand(`\sql`)
	if !strings.Contains(out.String(), "SELECT name FROM dishes") {
		t.Fatalf("\\sql output = %q", out.String())
	}

	out.Reset()
	loop.handleCommand(`\clear`)
	loop.handleCommand(`\history`)
	if !strings.Contains(out.String(), "(no history)") {
		t.Fatalf("history after \\clear = %q", out.String())
	}
}

func TestHandleCommandUnknown(t *testing.T) {
	loop, out := newTestREPL(t, &stubTranslator{sql: "SELECT 1"}, &stubEngine{})
	loop.handleCommand(`\nope`)
	if !strings.Contains(out.String(), "Unknown command") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestFriendlyMessageByErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&agent.TranslationError{Err: errors.New("timeout")}, "could not translate"},
		{&agent.RejectedError{Reason: gate.ReasonUnknownRelation, Detail: "menu_items"}, "UNKNOWN_RELATION"},
		{&agent.RejectedError{Reason: gate.ReasonUnknownRelation, Detail: "menu_items"}, "menu_items"},
		{&agent.ExecutionError{Err: errors.New("connection lost")}, "could not run"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tc := range cases {
		if got := friendlyMessage(tc.err); !strings.Contains(got, tc.want) {
			t.Fatalf("friendlyMessage(%v) = %q, want contains %q", tc.err, got, tc.want)
		}
	}
}
