// Package vector provides best-effort fuzzy matching over the database's
// text columns. Dish and ingredient names the user misspells are resolved
// to the closest stored values, which the translator then filters on.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Entry is one indexed text value and where it came from.
type Entry struct {
	Text   string
	Table  string
	Column string
	Vector []float32
}

type Match struct {
	Entry Entry
	Score float64
}

// Index is an in-memory cosine-similarity index. It is rebuilt at startup;
// the agent persists no state across restarts.
type Index struct {
	embedder Embedder
	entries  []Entry
}

func NewIndex(embedder Embedder, entries []Entry) *Index {
	return &Index{embedder: embedder, entries: entries}
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

func (ix *Index) Search(ctx context.Context, queryText string, k int) ([]Match, error) {
	if k <= 0 || len(ix.entries) == 0 {
		return nil, nil
	}

	vectors, err := ix.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(vectors))
	}
	queryVector := vectors[0]

	matches := make([]Match, 0, len(ix.entries))
	for _, entry := range ix.entries {
		matches = append(matches, Match{Entry: entry, Score: cosine(queryVector, entry.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Hints renders the top matches as translator prompt lines.
func (ix *Index) Hints(ctx context.Context, question string, k int) ([]string, error) {
	matches, err := ix.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	hints := make([]string, 0, len(matches))
	for _, match := range matches {
		hints = append(hints, fmt.Sprintf("%s (%s.%s)", match.Entry.Text, match.Entry.Table, match.Entry.Column))
	}
	return hints, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
