// Package cli wires configuration, database, translator and gate into the
// interactive agent loop.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dishql/dishql/internal/agent"
	"github.com/dishql/dishql/internal/config"
	"github.com/dishql/dishql/internal/gate"
	"github.com/dishql/dishql/internal/nl2sql"
	"github.com/dishql/dishql/internal/observability"
	querypostgres "github.com/dishql/dishql/internal/query/postgres"
	"github.com/dishql/dishql/internal/schema"
	"github.com/dishql/dishql/internal/session"
	"github.com/dishql/dishql/internal/vector"
)

type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Lookup config.LookupFunc
}

func Run(ctx context.Context, args []string, opts Options) int {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("dishql", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env-file", ".env", "optional dotenv file with credentials")
	question := fs.String("question", "", "ask a single question and exit")
	noVector := fs.Bool("no-vector", false, "disable the fuzzy-name vector index")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	loadDotenv(*envFile)
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg, err := config.Load("dishql", lookup)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	logger := observability.NewLogger(cfg, stderr)

	stopMetrics := observability.StartMetricsServer(cfg.Observability.MetricsAddr, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = stopMetrics(shutdownCtx)
	}()

	db, err := querypostgres.Open(ctx, querypostgres.DBConfig{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "cannot connect to the database, check the SUPABASE_* variables: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	loader := schema.NewLoader(db)
	catalog, err := loader.LoadCatalog(ctx)
	if err != nil {
		logger.Warn("schema introspection failed, using built-in restaurant schema", slog.Any("error", err))
		catalog = schema.Default()
	}
	tables := buildTableContexts(ctx, loader, catalog, cfg.Schema.SampleRows, logger)

	translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "cannot initialize translator: %v\n", err)
		return 1
	}

	var hinter agent.Hinter
	if cfg.Vector.Enabled && !*noVector {
		hinter = buildHinter(ctx, cfg, loader, logger)
	}

	mode := gate.ModeReadOnly
	if cfg.Gate.ReadWrite {
		mode = gate.ModeReadWrite
		logger.Warn("read-write mode enabled, mutating statements will not be blocked by verb")
	}

	askAgent, err := agent.New(agent.Dependencies{
		Translator:   translator,
		Gate:         gate.New(catalog, mode),
		Engine:       querypostgres.NewEngine(db),
		History:      session.NewHistory(cfg.Session.MaxTurns),
		Hinter:       hinter,
		Logger:       logger,
		Tables:       tables,
		HintCount:    cfg.Vector.TopK,
		RowLimit:     cfg.Query.RowLimit,
		QueryTimeout: cfg.Query.Timeout,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "cannot initialize agent: %v\n", err)
		return 1
	}

	loop := &repl{agent: askAgent, catalog: catalog, stdout: stdout, stderr: stderr}

	if strings.TrimSpace(*question) != "" {
		if quitErr := loop.ask(ctx, *question); quitErr != nil {
			return 1
		}
		return 0
	}

	return loop.run(ctx)
}

// loadDotenv mirrors the usual dotenv behavior: a missing file is fine,
// the environment always wins over file contents.
func loadDotenv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		// A malformed file is worth a note but never fatal.
		fmt.Fprintf(os.Stderr, "warning: cannot load %s: %v\n", path, err)
	}
}

func buildTableContexts(ctx context.Context, loader *schema.Loader, catalog *schema.Catalog, sampleRows int, logger *slog.Logger) []nl2sql.TableContext {
	contexts := make([]nl2sql.TableContext, 0, len(catalog.Tables()))
	for _, table := range catalog.Tables() {
		tableContext := nl2sql.TableContext{TableName: table.Name, Columns: table.Columns}
		columns, rows, err := loader.SampleRows(ctx, table.Name, sampleRows)
		if err != nil {
			logger.Debug("sampling failed", slog.String("table", table.Name), slog.Any("error", err))
		} else {
			tableContext.Columns = columns
			tableContext.SampleRows = rows
		}
		contexts = append(contexts, tableContext)
	}
	return contexts
}

func buildHinter(ctx context.Context, cfg config.Config, loader *schema.Loader, logger *slog.Logger) agent.Hinter {
	embedder, err := vector.NewOpenAIEmbedder(vector.EmbedderConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.Vector.EmbedModel,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		logger.Warn("cannot initialize embedder, continuing without hints", slog.Any("error", err))
		return nil
	}
	builder := &vector.Builder{Source: loader, Embedder: embedder, Logger: logger}
	index, err := builder.Build(ctx)
	if err != nil {
		logger.Warn("cannot build vector index, continuing without hints", slog.Any("error", err))
		return nil
	}
	logger.Info("vector index ready", slog.Int("entries", index.Len()))
	return index
}

// friendlyMessage converts a pipeline error into the line shown to the
// user. Reason codes are surfaced; raw statement text and row contents
// are not.
func friendlyMessage(err error) string {
	var translation *agent.TranslationError
	if errors.As(err, &translation) {
		return "Sorry, I could not translate that question. Please try rephrasing it."
	}
	var rejected *agent.RejectedError
	if errors.As(err, &rejected) {
		msg := fmt.Sprintf("That query was blocked: %s", rejected.Reason)
		if rejected.Detail != "" {
			msg += fmt.Sprintf(" (%s)", rejected.Detail)
		}
		return msg + ". Only read-only queries against the menu schema are allowed."
	}
	var execution *agent.ExecutionError
	if errors.As(err, &execution) {
		return "The database could not run that query. Please try again."
	}
	return fmt.Sprintf("Something went wrong: %v", err)
}
