package discussion

import (
	"strings"
	"testing"
)

func TestLogContextWindowEmpty(t *testing.T) {
	l := NewLog()
	if got := l.ContextWindow(10); got != NoHistory {
		t.Fatalf("ContextWindow(10) = %q, want %q", got, NoHistory)
	}
}

func TestLogContextWindowFormatsTail(t *testing.T) {
	l := NewLog()
	l.Append(Turn{Speaker: "Moderator", Text: "Today's discussion topic is: cities"})
	l.Append(Turn{Speaker: "Alice", Text: "Density is destiny."})
	l.Append(Turn{Speaker: "Bob", Text: "Suburbs disagree."})

	got := l.ContextWindow(2)
	want := "Alice: Density is destiny.\nBob: Suburbs disagree."
	if got != want {
		t.Fatalf("ContextWindow(2) = %q, want %q", got, want)
	}

	full := l.ContextWindow(10)
	if !strings.HasPrefix(full, "Moderator: ") {
		t.Fatalf("ContextWindow(10) should include the oldest turn, got %q", full)
	}
	if len(strings.Split(full, "\n")) != 3 {
		t.Fatalf("ContextWindow(10) should have 3 lines, got %q", full)
	}
}

func TestLogTurnsReturnsCopy(t *testing.T) {
	l := NewLog()
	l.Append(Turn{Speaker: "A", Text: "one"})

	turns := l.Turns()
	turns[0].Text = "mutated"

	if l.Turns()[0].Text != "one" {
		t.Fatalf("Turns() exposed internal storage")
	}
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
}
