package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"thinkchat/internal/api"
	"thinkchat/internal/config"
	"thinkchat/internal/display"
	"thinkchat/internal/history"
	"thinkchat/internal/response"
	"thinkchat/internal/tokens"
)

// ─── Input dispatcher ───────────────────────────────────────────────────────

func (m model) dispatchInput(input string) (tea.Model, tea.Cmd) {
	if input == "?" {
		return m.cmdHelp()
	}
	if strings.HasPrefix(input, "/") {
		return m.dispatchCommand(input)
	}
	// Default: treat as a chat prompt
	return m.cmdChat(input)
}

func (m model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h":
		return m.cmdHelp()
	case "/login":
		return m.cmdLogin(args)
	case "/config":
		return m.cmdConfig()
	case "/cot":
		return m.cmdToggle(args, "Chain-of-thought prompting", &m.cfg.ChainOfThought)
	case "/reasoning":
		return m.cmdToggle(args, "Reasoning visibility", &m.cfg.ShowReasoning)
	case "/stream":
		return m.cmdToggle(args, "Streaming replies", &m.cfg.Stream)
	case "/model":
		return m.cmdModel(args)
	case "/new":
		return m.cmdNew()
	case "/history":
		return m.cmdHistory()
	case "/resume":
		return m.cmdResume(args)
	case "/tokens":
		return m.cmdTokens()
	case "/clear":
		return m.cmdClear()
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown command: %s — type /help", cmd)))
	}
}

// ─── Chat ───────────────────────────────────────────────────────────────────

func (m model) cmdChat(prompt string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		return m, tea.Println(warnMsgStyle.Render("  ! Not configured. Run /login first."))
	}

	messages := api.BuildMessages(m.cfg.ChainOfThought, m.session.Messages(), prompt)

	m.streamPrompt = prompt
	m.parser = response.NewParserState()
	m.printedPrefix = ""
	m.liveLine = ""
	m.streamedVisible = false

	echo := tea.Println(userPromptStyle.Render("❯ ") + prompt)

	if m.cfg.Stream {
		m.mode = modeStreaming
		return m, tea.Sequence(echo, beginStream(m.client, messages))
	}

	m.mode = modeStreaming
	return m, tea.Sequence(echo, beginComplete(m.client, messages))
}

// ─── /help ──────────────────────────────────────────────────────────────────

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	pad := func(s string, w int) string {
		for len(s) < w {
			s += " "
		}
		return s
	}

	lines := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render("  Shortcuts:")),
		tea.Println(""),
		tea.Println("  " + pad(hintKeyStyle.Render("/login [url]"), 30) + dimStyle.Render("Configure server and API key")),
		tea.Println("  " + pad(hintKeyStyle.Render("/model [name]"), 30) + dimStyle.Render("Show, list or switch the model")),
		tea.Println("  " + pad(hintKeyStyle.Render("/cot [on|off]"), 30) + dimStyle.Render("Toggle chain-of-thought prompting")),
		tea.Println("  " + pad(hintKeyStyle.Render("/reasoning [on|off]"), 30) + dimStyle.Render("Show or hide reasoning text")),
		tea.Println("  " + pad(hintKeyStyle.Render("/stream [on|off]"), 30) + dimStyle.Render("Toggle streaming replies")),
		tea.Println("  " + pad(hintKeyStyle.Render("/new"), 30) + dimStyle.Render("Start a fresh conversation")),
		tea.Println("  " + pad(hintKeyStyle.Render("/history"), 30) + dimStyle.Render("List stored conversations")),
		tea.Println("  " + pad(hintKeyStyle.Render("/resume <id>"), 30) + dimStyle.Render("Resume a stored conversation")),
		tea.Println("  " + pad(hintKeyStyle.Render("/tokens"), 30) + dimStyle.Render("Show token usage")),
		tea.Println("  " + pad(hintKeyStyle.Render("/config"), 30) + dimStyle.Render("Show current configuration")),
		tea.Println("  " + pad(hintKeyStyle.Render("/clear"), 30) + dimStyle.Render("Clear the screen")),
		tea.Println("  " + pad(hintKeyStyle.Render("/quit"), 30) + dimStyle.Render("Exit")),
		tea.Println(""),
		tea.Println(dimStyle.Render("  Or just type a question to start chatting!")),
		tea.Println(""),
	}
	return m, tea.Sequence(lines...)
}

// ─── /login ─────────────────────────────────────────────────────────────────

func (m model) cmdLogin(args []string) (tea.Model, tea.Cmd) {
	if len(args) > 0 {
		m.loginServer = args[0]
		m.mode = modeLoginKey
		m.input.Placeholder = "API key..."
		m.input.SetValue("")
		m.input.EchoCharacter = '•'
		m.input.EchoMode = textinput.EchoPassword
		return m, tea.Println(dimStyle.Render(fmt.Sprintf("  Server: %s — enter your API key:", m.loginServer)))
	}

	m.mode = modeLoginServer
	m.input.Placeholder = "Server URL (e.g. https://api.openai.com)..."
	m.input.SetValue("")
	return m, tea.Println(dimStyle.Render("  Enter the server URL:"))
}

func (m model) handleLoginServerSubmit(value string) (tea.Model, tea.Cmd) {
	m.loginServer = value
	m.mode = modeLoginKey
	m.input.Placeholder = "API key..."
	m.input.SetValue("")
	m.input.EchoCharacter = '•'
	m.input.EchoMode = textinput.EchoPassword
	return m, tea.Sequence(
		tea.Println(dimStyle.Render(fmt.Sprintf("  Server: %s", value))),
		tea.Println(dimStyle.Render("  Enter your API key:")),
	)
}

type loginResultMsg struct {
	cfg *config.Config
	err error
}

func (m model) handleLoginKeySubmit(value string) (tea.Model, tea.Cmd) {
	apiKey := value
	m.input.EchoMode = textinput.EchoNormal
	m.input.SetValue("")
	m.input.Placeholder = "Verifying..."

	server := m.loginServer
	profile := m.profile

	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Verifying...")),
		func() tea.Msg {
			cfg, err := config.Load(profile)
			if err != nil {
				return loginResultMsg{err: err}
			}
			cfg.Server = api.NormalizeServerURL(server)
			cfg.APIKey = apiKey

			// Verify credentials with a models call before saving.
			client := api.NewClient(cfg)
			if _, err := client.ListModels(); err != nil {
				return loginResultMsg{err: fmt.Errorf("verification failed: %w", err)}
			}

			if err := cfg.Save(); err != nil {
				return loginResultMsg{err: err}
			}
			return loginResultMsg{cfg: cfg}
		},
	)
}

func (m model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.mode = modeIdle
	m.input.Placeholder = "Ask anything or type /help..."

	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", msg.err)))
	}

	m.cfg = msg.cfg
	m.client = api.NewClient(m.cfg)
	m.loginServer = ""

	return m, tea.Sequence(
		tea.Println(successMsgStyle.Render("  ✓ Logged in successfully!")),
		tea.Println(dimStyle.Render(fmt.Sprintf("    Server: %s", m.cfg.Server))),
		tea.Println(dimStyle.Render(fmt.Sprintf("    Model:  %s", m.cfg.Model))),
		tea.Println(""),
	)
}

// ─── /config ────────────────────────────────────────────────────────────────

func (m model) cmdConfig() (tea.Model, tea.Cmd) {
	val := func(s string) string {
		if s == "" {
			return dimStyle.Render("(not set)")
		}
		return s
	}
	onOff := func(b bool) string {
		if b {
			return successMsgStyle.Render("on")
		}
		return dimStyle.Render("off")
	}
	key := dimStyle.Render("(not set)")
	if m.cfg.APIKey != "" {
		end := 8
		if len(m.cfg.APIKey) < end {
			end = len(m.cfg.APIKey)
		}
		key = m.cfg.APIKey[:end] + "..."
	}

	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(dimStyle.Render("  Configuration:")),
		tea.Println(fmt.Sprintf("    Profile:          %s", config.ProfileName(m.profile))),
		tea.Println(fmt.Sprintf("    Server:           %s", val(m.cfg.Server))),
		tea.Println(fmt.Sprintf("    API key:          %s", key)),
		tea.Println(fmt.Sprintf("    Model:            %s", val(m.cfg.Model))),
		tea.Println(fmt.Sprintf("    Chain-of-thought: %s", onOff(m.cfg.ChainOfThought))),
		tea.Println(fmt.Sprintf("    Show reasoning:   %s", onOff(m.cfg.ShowReasoning))),
		tea.Println(fmt.Sprintf("    Streaming:        %s", onOff(m.cfg.Stream))),
		tea.Println(fmt.Sprintf("    Tokens used:      %d", m.cfg.TokensUsed)),
		tea.Println(fmt.Sprintf("    Session:          %s", truncateID(m.session.ID))),
		tea.Println(""),
	)
}

// ─── Toggles ────────────────────────────────────────────────────────────────

// cmdToggle flips or sets a boolean setting and persists it. With no
// argument the setting flips; "on"/"off" set it explicitly.
func (m model) cmdToggle(args []string, label string, field *bool) (tea.Model, tea.Cmd) {
	switch {
	case len(args) == 0:
		*field = !*field
	case args[0] == "on":
		*field = true
	case args[0] == "off":
		*field = false
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Usage: %s [on|off]", label)))
	}

	if err := m.cfg.Save(); err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not save config: %v", err)))
	}

	state := "off"
	if *field {
		state = "on"
	}
	return m, tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ %s: %s", label, state)))
}

// ─── /model ─────────────────────────────────────────────────────────────────

type modelsLoadedMsg struct {
	models []api.ModelInfo
	err    error
}

func (m model) cmdModel(args []string) (tea.Model, tea.Cmd) {
	if len(args) > 0 {
		m.cfg.Model = args[0]
		if err := m.cfg.Save(); err != nil {
			return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Could not save config: %v", err)))
		}
		if m.client != nil {
			m.client = api.NewClient(m.cfg)
		}
		if counter, err := tokens.NewCounter(m.cfg.Model); err == nil {
			m.counter = counter
		}
		return m, tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ Model: %s", m.cfg.Model)))
	}

	if m.client == nil {
		return m, tea.Println(fmt.Sprintf("  Model: %s", m.cfg.Model))
	}

	client := m.client
	return m, tea.Sequence(
		tea.Println(fmt.Sprintf("  Model: %s", m.cfg.Model)),
		tea.Println(statusStyle.Render("  ⟳ Fetching available models...")),
		func() tea.Msg {
			resp, err := client.ListModels()
			if err != nil {
				return modelsLoadedMsg{err: err}
			}
			return modelsLoadedMsg{models: resp.Data}
		},
	)
}

func (m model) handleModelsLoaded(msg modelsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", msg.err)))
	}

	var lines []tea.Cmd
	lines = append(lines, tea.Println(dimStyle.Render("  Available models:")))
	for _, info := range msg.models {
		marker := "  "
		if info.ID == m.cfg.Model {
			marker = successMsgStyle.Render("✓ ")
		}
		lines = append(lines, tea.Println("    "+marker+info.ID))
	}
	lines = append(lines, tea.Println(dimStyle.Render("  Switch with /model <name>")))
	return m, tea.Sequence(lines...)
}

// ─── /new, /history, /resume ────────────────────────────────────────────────

func (m model) cmdNew() (tea.Model, tea.Cmd) {
	m.session = history.NewSession(m.cfg.Model)
	return m, tea.Println(successMsgStyle.Render("  ✓ New conversation started"))
}

type sessionsListedMsg struct {
	sessions []*history.Session
	err      error
}

func (m model) cmdHistory() (tea.Model, tea.Cmd) {
	return m, func() tea.Msg {
		sessions, err := history.List()
		return sessionsListedMsg{sessions: sessions, err: err}
	}
}

func (m model) handleSessionsListed(msg sessionsListedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", msg.err)))
	}
	if len(msg.sessions) == 0 {
		return m, tea.Println(dimStyle.Render("  No stored conversations."))
	}

	var lines []tea.Cmd
	lines = append(lines, tea.Println(""), tea.Println(dimStyle.Render("  Conversations:")))
	shown := msg.sessions
	if len(shown) > 15 {
		shown = shown[:15]
	}
	for _, s := range shown {
		title := s.Title
		if title == "" {
			title = dimStyle.Render("(empty)")
		}
		var stage string
		if n := len(s.Turns); n > 0 {
			stage = display.StageLabel(s.Turns[n-1].Stage)
		}
		lines = append(lines, tea.Println(fmt.Sprintf("    %s  %s  %s",
			dimStyle.Render(truncateID(s.ID)), title, stage)))
	}
	lines = append(lines, tea.Println(dimStyle.Render("  Resume with /resume <id>")), tea.Println(""))
	return m, tea.Sequence(lines...)
}

func (m model) cmdResume(args []string) (tea.Model, tea.Cmd) {
	id := ""
	if len(args) > 0 {
		id = args[0]
	} else if m.cfg.LastSession != "" {
		id = m.cfg.LastSession
	}
	if id == "" {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Usage: /resume <id>"))
	}

	s, err := history.Load(id)
	if err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", err)))
	}
	m.session = s
	return m, tea.Sequence(
		tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ Resumed: %s", s.Title))),
		tea.Println(dimStyle.Render(fmt.Sprintf("    %d turns · %d tokens", len(s.Turns), s.TotalTokens()))),
	)
}

// ─── /tokens ────────────────────────────────────────────────────────────────

func (m model) cmdTokens() (tea.Model, tea.Cmd) {
	return m, tea.Sequence(
		tea.Println(fmt.Sprintf("  This conversation: %d tokens", m.session.TotalTokens())),
		tea.Println(fmt.Sprintf("  All time:          %d tokens", m.cfg.TokensUsed)),
	)
}

// ─── /clear ─────────────────────────────────────────────────────────────────

func (m model) cmdClear() (tea.Model, tea.Cmd) {
	return m, tea.ClearScreen
}
