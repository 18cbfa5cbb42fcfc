package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewSession(t *testing.T) {
	s := NewSession("gpt-4o")
	if s.ID == "" {
		t.Error("ID is empty")
	}
	if s.Model != "gpt-4o" {
		t.Errorf("Model = %q, want %q", s.Model, "gpt-4o")
	}
	if s.CreateTime == "" || s.LastUpdate == "" {
		t.Error("timestamps not set")
	}

	other := NewSession("gpt-4o")
	if other.ID == s.ID {
		t.Error("two sessions share an ID")
	}
}

func TestAddTurn(t *testing.T) {
	s := NewSession("m")
	s.AddTurn(Turn{
		Prompt: "why is the sky blue?\nsecond line",
		Answer: "Rayleigh scattering",
		Stage:  "complete",
		Tokens: 12,
	})
	s.AddTurn(Turn{Prompt: "and sunsets?", Answer: "longer path", Stage: "complete", Tokens: 8})

	if len(s.Turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(s.Turns))
	}
	if s.Title != "why is the sky blue?" {
		t.Errorf("Title = %q, want first line of first prompt", s.Title)
	}
	if s.Turns[0].Time == "" {
		t.Error("turn time not set")
	}
	if s.TotalTokens() != 20 {
		t.Errorf("TotalTokens = %d, want 20", s.TotalTokens())
	}
}

func TestSessionTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 100)
	title := sessionTitle(long)
	if len(title) != 60 {
		t.Errorf("len(title) = %d, want 60", len(title))
	}
	if !strings.HasSuffix(title, "...") {
		t.Errorf("title = %q, want ellipsis suffix", title)
	}
}

func TestSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s := NewSession("gpt-4o-mini")
	s.AddTurn(Turn{Prompt: "q", Reasoning: "because", Answer: "a", Stage: "complete", Tokens: 5})

	if err := Save(s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(tmpDir, historyDir, s.ID+".json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("session file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file permissions = %o, want 0600", perm)
	}

	loaded, err := Load(s.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ID != s.ID {
		t.Errorf("ID = %q, want %q", loaded.ID, s.ID)
	}
	if len(loaded.Turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(loaded.Turns))
	}
	if loaded.Turns[0].Reasoning != "because" {
		t.Errorf("Reasoning = %q, want %q", loaded.Turns[0].Reasoning, "because")
	}
	if loaded.Turns[0].Stage != "complete" {
		t.Errorf("Stage = %q, want %q", loaded.Turns[0].Stage, "complete")
	}
}

func TestLoadMissing(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	_, err := Load("no-such-session")
	if err == nil {
		t.Fatal("expected error for missing session")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q, want not found", err.Error())
	}
}

func TestListOrder(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	older := NewSession("m")
	older.AddTurn(Turn{Prompt: "first", Answer: "a", Time: "2026-01-01T10:00:00Z"})
	newer := NewSession("m")
	newer.AddTurn(Turn{Prompt: "second", Answer: "b", Time: "2026-02-01T10:00:00Z"})

	if err := Save(older); err != nil {
		t.Fatalf("Save(older) error = %v", err)
	}
	if err := Save(newer); err != nil {
		t.Fatalf("Save(newer) error = %v", err)
	}

	sessions, err := List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != newer.ID {
		t.Errorf("List()[0].ID = %q, want most recent %q", sessions[0].ID, newer.ID)
	}
}

func TestListEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	sessions, err := List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions, want 0", len(sessions))
	}
}

func TestDelete(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s := NewSession("m")
	if err := Save(s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := Delete(s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := Load(s.ID); err == nil {
		t.Error("Load() after Delete() should fail")
	}
	if err := Delete(s.ID); err == nil {
		t.Error("Delete() twice should fail")
	}
}

func TestMessages(t *testing.T) {
	s := NewSession("m")
	s.AddTurn(Turn{Prompt: "q1", Reasoning: "r1", Answer: "a1", Stage: "complete"})
	s.AddTurn(Turn{Prompt: "q2", Answer: "", Stage: "reasoning"})

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3 (empty answer skipped)", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "q1" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "a1" {
		t.Errorf("msgs[1] = %+v, reasoning must not be replayed", msgs[1])
	}
	if msgs[2].Role != "user" || msgs[2].Content != "q2" {
		t.Errorf("msgs[2] = %+v", msgs[2])
	}
}
