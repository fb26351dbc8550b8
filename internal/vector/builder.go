package vector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/dishql/dishql/internal/schema"
)

// Source supplies the text columns to index and their values.
type Source interface {
	TextColumns(ctx context.Context) ([]schema.ColumnRef, error)
	DistinctValues(ctx context.Context, ref schema.ColumnRef) ([]string, error)
}

type Builder struct {
	Source    Source
	Embedder  Embedder
	Logger    *slog.Logger
	BatchSize int
}

// Build collects the distinct values of every text column, cleans and
// dedupes them, embeds them in batches and returns a ready index.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	if b.Source == nil || b.Embedder == nil {
		return nil, fmt.Errorf("source and embedder are required")
	}
	batchSize := b.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}

	refs, err := b.Source.TextColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list text columns: %w", err)
	}

	entries := make([]Entry, 0)
	seen := map[string]struct{}{}
	for _, ref := range refs {
		values, err := b.Source.DistinctValues(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("collect values: %w", err)
		}
		for _, value := range values {
			cleaned := cleanText(value)
			if cleaned == "" || isNumericOnly(cleaned) {
				continue
			}
			if _, ok := seen[cleaned]; ok {
				continue
			}
			seen[cleaned] = struct{}{}
			entries = append(entries, Entry{Text: cleaned, Table: ref.Table, Column: ref.Column})
		}
	}
	logger.Debug("collected index entries",
		slog.Int("columns", len(refs)),
		slog.Int("entries", len(entries)),
	)

	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		inputs := make([]string, 0, end-start)
		for _, entry := range entries[start:end] {
			inputs = append(inputs, entry.Text)
		}
		vectors, err := b.Embedder.Embed(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		for i := range vectors {
			entries[start+i].Vector = vectors[i]
		}
	}

	return NewIndex(b.Embedder, entries), nil
}

func cleanText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func isNumericOnly(value string) bool {
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
