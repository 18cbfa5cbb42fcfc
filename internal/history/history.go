package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"thinkchat/internal/api"
)

const historyDir = ".thinkchat/history"

// Turn is one prompt/reply exchange within a session. Stage records how the
// reply classified: "none", "reasoning" or "complete".
type Turn struct {
	Prompt    string `json:"prompt"`
	Reasoning string `json:"reasoning,omitempty"`
	Answer    string `json:"answer"`
	Stage     string `json:"stage"`
	Tokens    int    `json:"tokens,omitempty"`
	Time      string `json:"time"`
}

// Session is a persisted conversation. One JSON file per session lives
// under ~/.thinkchat/history.
type Session struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Model      string `json:"model"`
	CreateTime string `json:"create_time"`
	LastUpdate string `json:"last_update"`
	Turns      []Turn `json:"turns"`
}

// NewSession creates an unsaved session with a fresh ID.
func NewSession(model string) *Session {
	now := time.Now().Format(time.RFC3339)
	return &Session{
		ID:         uuid.NewString(),
		Model:      model,
		CreateTime: now,
		LastUpdate: now,
	}
}

// AddTurn appends an exchange and refreshes the title and timestamps. The
// first prompt names the session.
func (s *Session) AddTurn(turn Turn) {
	if turn.Time == "" {
		turn.Time = time.Now().Format(time.RFC3339)
	}
	s.Turns = append(s.Turns, turn)
	s.LastUpdate = turn.Time
	if s.Title == "" {
		s.Title = sessionTitle(turn.Prompt)
	}
}

// TotalTokens sums the per-turn token counts.
func (s *Session) TotalTokens() int {
	total := 0
	for _, t := range s.Turns {
		total += t.Tokens
	}
	return total
}

func sessionTitle(prompt string) string {
	title := strings.TrimSpace(prompt)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	if len(title) > 60 {
		title = title[:57] + "..."
	}
	return title
}

func dirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, historyDir), nil
}

func sessionPath(id string) (string, error) {
	dir, err := dirPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, id+".json"), nil
}

// Save writes the session to disk.
func Save(s *Session) error {
	path, err := sessionPath(s.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Load reads a session by ID.
func Load(id string) (*Session, error) {
	path, err := sessionPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session %s not found", id)
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}
	s := &Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}
	return s, nil
}

// List returns all stored sessions, most recently updated first. Files
// that fail to parse are skipped.
func List() ([]*Session, error) {
	dir, err := dirPath()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	var sessions []*Session
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		s, err := Load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastUpdate > sessions[j].LastUpdate
	})
	return sessions, nil
}

// Delete removes a stored session.
func Delete(id string) error {
	path, err := sessionPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("session %s not found", id)
		}
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Messages converts the session turns to chat messages for resending as
// conversation context. Reasoning is not replayed, only answers.
func (s *Session) Messages() []api.ChatMessage {
	var msgs []api.ChatMessage
	for _, t := range s.Turns {
		msgs = append(msgs, api.ChatMessage{Role: "user", Content: t.Prompt})
		if t.Answer != "" {
			msgs = append(msgs, api.ChatMessage{Role: "assistant", Content: t.Answer})
		}
	}
	return msgs
}
