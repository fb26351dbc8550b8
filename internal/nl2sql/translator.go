package nl2sql

import "context"

type TableContext struct {
	TableName  string   `json:"table_name"`
	Columns    []string `json:"columns"`
	SampleRows [][]any  `json:"sample_rows,omitempty"`
}

// Turn is one prior exchange, replayed so follow-up questions resolve
// against earlier answers. Summary describes the result shape, never row
// contents.
type Turn struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
	Summary  string `json:"summary"`
}

type Request struct {
	Question string         `json:"question"`
	Tables   []TableContext `json:"tables"`
	History  []Turn         `json:"history,omitempty"`
	Hints    []string       `json:"hints,omitempty"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
