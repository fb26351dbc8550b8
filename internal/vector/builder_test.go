package vector

import (
	"context"
	"testing"

	"github.com/dishql/dishql/internal/schema"
)

type fakeSource struct {
	columns []schema.ColumnRef
	values  map[string][]string
}

func (f *fakeSource) TextColumns(context.Context) ([]schema.ColumnRef, error) {
	return f.columns, nil
}

func (f *fakeSource) DistinctValues(_ context.Context, ref schema.ColumnRef) ([]string, error) {
	return f.values[ref.Table+"."+ref.Column], nil
}

func TestBuildCleansDedupesAndEmbeds(t *testing.T) {
	source := &fakeSource{
		columns: []schema.ColumnRef{
			{Table: "dishes", Column: "name"},
			{Table: "dish_ingredients", Column: "ingredient_name"},
		},
		values: map[string][]string{
			"dishes.name": {"  Paneer   Tikka ", "Dal Makhani", "12345", "   "},
			// Duplicate of an already-collected value, should be skipped.
			"dish_ingredients.ingredient_name": {"Paneer Tikka", "Paneer"},
		},
	}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Paneer Tikka": {1, 0, 0},
		"Dal Makhani":  {0, 1, 0},
		"Paneer":       {0, 0, 1},
	}}

	builder := &Builder{Source: source, Embedder: embedder, BatchSize: 2}
	index, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if index.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", index.Len())
	}
	if index.entries[0].Text != "Paneer Tikka" {
		t.Fatalf("entries[0].Text = %q, want whitespace collapsed", index.entries[0].Text)
	}
	if index.entries[0].Table != "dishes" || index.entries[0].Column != "name" {
		t.Fatalf("entries[0] source = %s.%s", index.entries[0].Table, index.entries[0].Column)
	}
	if index.entries[2].Text != "Paneer" {
		t.Fatalf("entries[2].Text = %q", index.entries[2].Text)
	}
	for i, entry := range index.entries {
		if len(entry.Vector) == 0 {
			t.Fatalf("entries[%d] has no vector", i)
		}
	}
	// 3 entries with batch size 2 means two embedding calls.
	if len(embedder.calls) != 2 {
		t.Fatalf("embedding calls = %d, want 2", len(embedder.calls))
	}
}

func TestBuildRequiresSourceAndEmbedder(t *testing.T) {
	builder := &Builder{}
	if _, err := builder.Build(context.Background()); err == nil {
		t.Fatal("Build() without dependencies should fail")
	}
}
