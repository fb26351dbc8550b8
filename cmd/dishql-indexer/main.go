// Command dishql-indexer builds the fuzzy-name vector index from the live
// database and runs one probe search, so the embedding setup can be checked
// before enabling hints in the agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dishql/dishql/internal/config"
	"github.com/dishql/dishql/internal/observability"
	querypostgres "github.com/dishql/dishql/internal/query/postgres"
	"github.com/dishql/dishql/internal/schema"
	"github.com/dishql/dishql/internal/vector"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("dishql-indexer", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	envFile := fs.String("env-file", ".env", "optional dotenv file with credentials")
	term := fs.String("term", "paneer", "probe term to search after building")
	topK := fs.Int("top-k", 5, "number of probe matches to print")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: cannot load %s: %v\n", *envFile, err)
	}

	cfg, err := config.LoadFromEnv("dishql-indexer")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	db, err := querypostgres.Open(ctx, querypostgres.DBConfig{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot connect to the database, check the SUPABASE_* variables: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	embedder, err := vector.NewOpenAIEmbedder(vector.EmbedderConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.Vector.EmbedModel,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot initialize embedder: %v\n", err)
		return 1
	}

	builder := &vector.Builder{
		Source:   schema.NewLoader(db),
		Embedder: embedder,
		Logger:   logger,
	}

	started := time.Now()
	index, err := builder.Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot build vector index: %v\n", err)
		return 1
	}
	logger.Info("vector index built",
		slog.Int("entries", index.Len()),
		slog.String("elapsed", time.Since(started).Round(time.Millisecond).String()),
	)

	matches, err := index.Search(ctx, *term, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe search failed: %v\n", err)
		return 1
	}
	fmt.Printf("Top matches for %q:\n", *term)
	for _, match := range matches {
		fmt.Printf("  %.3f  %s (%s.%s)\n", match.Score, match.Entry.Text, match.Entry.Table, match.Entry.Column)
	}
	return 0
}
