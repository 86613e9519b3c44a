package session

import (
	"strings"
	"testing"

	"github.com/chatblock-ai/chatblock/internal/provider"
)

func user(content string) provider.Turn {
	return provider.Turn{Role: provider.RoleUser, Content: content}
}

func assistant(content string) provider.Turn {
	return provider.Turn{Role: provider.RoleAssistant, Content: content}
}

// wordCost charges one token per whitespace-separated word.
func wordCost(t provider.Turn) int {
	return len(strings.Fields(t.Content))
}

func turnsEqual(a, b []provider.Turn) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name    string
		history []provider.Turn
		limit   int
		want    []provider.Turn
	}{
		{
			name:    "empty history",
			history: nil,
			limit:   100,
			want:    nil,
		},
		{
			name:    "everything fits",
			history: []provider.Turn{user("hi"), assistant("hello"), user("how are you")},
			limit:   100,
			want:    []provider.Turn{user("hi"), assistant("hello"), user("how are you")},
		},
		{
			name:    "zero limit excludes everything",
			history: []provider.Turn{user("hi"), assistant("hello")},
			limit:   0,
			want:    nil,
		},
		{
			name:    "single turn too large to fit alone",
			history: []provider.Turn{user("one two three four five")},
			limit:   3,
			want:    nil,
		},
		{
			name: "cut lands on a user turn",
			history: []provider.Turn{
				user("one"), assistant("two"),
				user("three"), assistant("four"),
			},
			limit: 2,
			want:  []provider.Turn{user("three"), assistant("four")},
		},
		{
			name: "stranded user turn is dropped with its window prefix",
			history: []provider.Turn{
				user("one"), assistant("two"),
				user("three"), assistant("four"),
			},
			limit: 3,
			// Window is [assistant(two), user(three), assistant(four)];
			// user(three) is not at the front, so everything through it goes.
			want: []provider.Turn{assistant("four")},
		},
		{
			name:    "window without user turns is kept as-is",
			history: []provider.Turn{assistant("one"), assistant("two")},
			limit:   2,
			want:    []provider.Turn{assistant("one"), assistant("two")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Trim(tt.history, tt.limit, wordCost)
			if !turnsEqual(got, tt.want) {
				t.Errorf("Trim() = %v, want %v", got, tt.want)
			}

			// Result always fits the limit.
			total := 0
			for _, turn := range got {
				total += wordCost(turn)
			}
			if total > tt.limit {
				t.Errorf("trimmed history costs %d tokens, limit %d", total, tt.limit)
			}

			// Result is a contiguous suffix of the input.
			if len(got) > 0 {
				tail := tt.history[len(tt.history)-len(got):]
				if !turnsEqual(got, tail) {
					t.Errorf("Trim() = %v is not a suffix of %v", got, tt.history)
				}
			}

			// Re-trimming the output is a no-op.
			again := Trim(got, tt.limit, wordCost)
			if !turnsEqual(again, got) {
				t.Errorf("Trim not idempotent: first %v, second %v", got, again)
			}
		})
	}
}

func TestTrimDoesNotMutateInput(t *testing.T) {
	history := []provider.Turn{
		user("one"), assistant("two"), user("three"), assistant("four"),
	}
	snapshot := make([]provider.Turn, len(history))
	copy(snapshot, history)

	Trim(history, 3, wordCost)

	if !turnsEqual(history, snapshot) {
		t.Errorf("Trim mutated its input: %v, want %v", history, snapshot)
	}
}
