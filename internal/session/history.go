// Package session keeps the conversational context of one interactive
// session. Each session owns exactly one History; nothing is shared
// across sessions.
package session

import "github.com/dishql/dishql/internal/nl2sql"

// History is a bounded, ordered log of prior turns. When the cap is
// reached the oldest turn is evicted first.
type History struct {
	maxTurns int
	turns    []nl2sql.Turn
}

func NewHistory(maxTurns int) *History {
	if maxTurns < 0 {
		maxTurns = 0
	}
	return &History{maxTurns: maxTurns}
}

func (h *History) Append(turn nl2sql.Turn) {
	if h.maxTurns == 0 {
		return
	}
	h.turns = append(h.turns, turn)
	if len(h.turns) > h.maxTurns {
		h.turns = h.turns[len(h.turns)-h.maxTurns:]
	}
}

// Turns returns a copy so callers cannot mutate the log.
func (h *History) Turns() []nl2sql.Turn {
	out := make([]nl2sql.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Len() int {
	return len(h.turns)
}

func (h *History) Clear() {
	h.turns = h.turns[:0]
}
