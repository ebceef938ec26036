package chat

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
)

func TestTruncateCountsCodePoints(t *testing.T) {
	short := strings.Repeat("क", 10)
	if got := Truncate(short); got != short {
		t.Fatalf("short content should be unchanged")
	}

	long := strings.Repeat("गु", MaxContentLength)
	got := Truncate(long)
	if n := utf8.RuneCountInString(got); n != MaxContentLength {
		t.Fatalf("expected %d code points, got %d", MaxContentLength, n)
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a code point")
	}
}

func TestNewTurnSharesEmotion(t *testing.T) {
	turn := NewTurn("u1", SessionText, "hi", "hello", emotion.Lonely, time.Now())
	if len(turn.Messages) != 2 {
		t.Fatalf("expected two messages, got %d", len(turn.Messages))
	}
	if turn.Messages[0].Role != RoleUser || turn.Messages[1].Role != RoleBot {
		t.Fatalf("unexpected roles %+v", turn.Messages)
	}
	for _, m := range turn.Messages {
		if m.Emotion != emotion.Lonely {
			t.Fatalf("expected lonely on every message, got %s", m.Emotion)
		}
	}
	if label, ok := turn.UserEmotion(); !ok || label != emotion.Lonely {
		t.Fatalf("unexpected user emotion %s", label)
	}
}

func TestNewTurnCoercesUnknownEmotion(t *testing.T) {
	turn := NewTurn("u1", SessionVideo, "hi", "hello", emotion.Label("bored"), time.Now())
	if turn.Messages[0].Emotion != emotion.Neutral {
		t.Fatalf("expected neutral, got %s", turn.Messages[0].Emotion)
	}
}
