package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"thinkchat/internal/api"
	"thinkchat/internal/config"
	"thinkchat/internal/display"
	"thinkchat/internal/history"
	"thinkchat/internal/response"
	"thinkchat/internal/tokens"
)

// ─── App mode ───────────────────────────────────────────────────────────────

type appMode int

const (
	modeIdle appMode = iota
	modeStreaming
	modeLoginServer
	modeLoginKey
)

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/clear", "Clear the screen"},
	{"/config", "Show current configuration"},
	{"/cot", "Toggle chain-of-thought prompting"},
	{"/help", "Show all commands"},
	{"/history", "List stored conversations"},
	{"/login", "Configure server and API key"},
	{"/model", "Show or switch the model"},
	{"/new", "Start a fresh conversation"},
	{"/quit", "Exit"},
	{"/reasoning", "Toggle reasoning visibility"},
	{"/resume", "Resume a stored conversation"},
	{"/stream", "Toggle streaming replies"},
	{"/tokens", "Show token usage"},
}

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	// Bubble Tea components
	input   textinput.Model
	spinner spinner.Model

	// App state
	mode    appMode
	cfg     *config.Config
	client  api.ChatAPI
	session *history.Session
	counter *tokens.Counter
	version string
	profile string

	// Streaming state. parser is created fresh for every request and
	// discarded on cancel so no carry-forward leaks between requests.
	parser          *response.ParserState
	streamPrompt    string
	printedPrefix   string // formatted text already flushed, ends on a line boundary
	liveLine        string // trailing partial line shown in View while streaming
	streamedVisible bool   // anything flushed yet for the current request

	// Login flow state
	loginServer string

	// UI state
	ready        bool
	cmdMenuIdx   int
	cmdMenuOpen  bool
	lastInputVal string

	// Prompt history
	promptLog    []string
	historyIdx   int
	historySaved string
}

func initialModel(version, profile, resumeSessionID string) model {
	ti := textinput.New()
	ti.Placeholder = "Ask anything or type /help..."
	ti.Focus()
	ti.CharLimit = 4096
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(colorTeal)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorTeal)

	cfg, _ := config.Load(profile)
	if cfg == nil {
		cfg = config.Defaults(profile)
	}

	var client api.ChatAPI
	if cfg.Server != "" && cfg.APIKey != "" {
		client = api.NewClient(cfg)
	}

	session := resumeOrNewSession(cfg, resumeSessionID)
	counter, _ := tokens.NewCounter(cfg.Model)

	return model{
		input:      ti,
		spinner:    sp,
		version:    version,
		profile:    profile,
		cfg:        cfg,
		client:     client,
		session:    session,
		counter:    counter,
		mode:       modeIdle,
		promptLog:  make([]string, 0),
		historyIdx: -1,
	}
}

func resumeOrNewSession(cfg *config.Config, resumeID string) *history.Session {
	if resumeID != "" {
		if s, err := history.Load(resumeID); err == nil {
			return s
		}
	}
	return history.NewSession(cfg.Model)
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 6

		if !m.ready {
			m.ready = true
			welcome := renderWelcome(m.version, m.cfg.Server, m.cfg.Model, m.width)
			cmds = append(cmds, tea.Println(welcome))
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.mode == modeStreaming {
				return m.cancelStream()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeStreaming {
				return m.cancelStream()
			}
			if m.mode == modeLoginServer || m.mode == modeLoginKey {
				m.mode = modeIdle
				m.input.Placeholder = "Ask anything or type /help..."
				m.input.SetValue("")
				m.input.EchoMode = textinput.EchoNormal
				cmds = append(cmds, tea.Println(warnMsgStyle.Render("  ! Login cancelled.")))
				return m, tea.Batch(cmds...)
			}
			if m.cmdMenuOpen {
				m.cmdMenuOpen = false
				m.cmdMenuIdx = 0
				return m, nil
			}

		case tea.KeyUp:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx--
						if m.cmdMenuIdx < 0 {
							m.cmdMenuIdx = len(matches) - 1
						}
						return m, nil
					}
				} else if len(m.promptLog) > 0 {
					if m.historyIdx == -1 {
						m.historySaved = m.input.Value()
						m.historyIdx = len(m.promptLog) - 1
					} else {
						m.historyIdx--
						if m.historyIdx < 0 {
							m.historyIdx = 0
						}
					}
					m.input.SetValue(m.promptLog[m.historyIdx])
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyDown:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx++
						if m.cmdMenuIdx >= len(matches) {
							m.cmdMenuIdx = 0
						}
						return m, nil
					}
				} else if m.historyIdx != -1 {
					m.historyIdx++
					if m.historyIdx >= len(m.promptLog) {
						m.historyIdx = -1
						m.input.SetValue(m.historySaved)
						m.historySaved = ""
					} else {
						m.input.SetValue(m.promptLog[m.historyIdx])
					}
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyTab:
			if m.mode == modeIdle && m.cmdMenuOpen {
				matches := matchCommands(m.input.Value())
				if len(matches) > 0 {
					idx := m.cmdMenuIdx
					if idx < 0 || idx >= len(matches) {
						idx = 0
					}
					m.input.SetValue(matches[idx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
				}
				return m, nil
			}

		case tea.KeyEnter:
			if m.mode == modeIdle && m.cmdMenuOpen && m.cmdMenuIdx >= 0 {
				matches := matchCommands(m.input.Value())
				if m.cmdMenuIdx < len(matches) {
					m.input.SetValue(matches[m.cmdMenuIdx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
					return m, nil
				}
			}

			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}

			if len(m.promptLog) == 0 || m.promptLog[len(m.promptLog)-1] != value {
				m.promptLog = append(m.promptLog, value)
				if len(m.promptLog) > 1000 {
					m.promptLog = m.promptLog[len(m.promptLog)-1000:]
				}
			}
			m.historyIdx = -1
			m.historySaved = ""

			m.input.SetValue("")
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0

			switch m.mode {
			case modeLoginServer:
				return m.handleLoginServerSubmit(value)
			case modeLoginKey:
				return m.handleLoginKeySubmit(value)
			default:
				return m.dispatchInput(value)
			}
		}

	// ── Stream messages ───────────────────────────────────────────────
	// A message from any channel other than activeStreamCh belongs to a
	// cancelled request; it must not touch the current parser state.
	case streamSnapshotMsg:
		if msg.ch != activeStreamCh {
			return m, nil
		}
		printCmd := m.handleSnapshot(msg.snapshot)
		if printCmd != nil {
			cmds = append(cmds, printCmd)
		}
		// Keep reading from the stream channel
		cmds = append(cmds, waitForStream(activeStreamCh))
		return m, tea.Batch(cmds...)

	case streamDoneMsg:
		if msg.ch != activeStreamCh {
			return m, nil
		}
		return m.handleStreamDone(msg)

	case streamErrMsg:
		if msg.ch != activeStreamCh {
			return m, nil
		}
		m.mode = modeIdle
		activeStreamCh = nil
		cmds = append(cmds, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Stream error: %v", msg.err))))
		m.resetStreamState()
		return m, tea.Batch(cmds...)

	case completeResultMsg:
		return m.handleCompleteResult(msg)

	// ── Async results ─────────────────────────────────────────────────
	case loginResultMsg:
		return m.handleLoginResult(msg)

	case modelsLoadedMsg:
		return m.handleModelsLoaded(msg)

	case sessionsListedMsg:
		return m.handleSessionsListed(msg)
	}

	// Update sub-components
	var cmd tea.Cmd

	if m.mode != modeStreaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	// Track input changes to open/close command menu and reset selection
	newVal := m.input.Value()
	if newVal != m.lastInputVal {
		m.lastInputVal = newVal
		if m.historyIdx != -1 {
			if m.historyIdx < len(m.promptLog) && m.promptLog[m.historyIdx] != newVal {
				m.historyIdx = -1
				m.historySaved = ""
			}
		}
		if strings.HasPrefix(newVal, "/") {
			m.cmdMenuOpen = true
			m.cmdMenuIdx = 0
		} else {
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0
		}
	}

	return m, tea.Batch(cmds...)
}

// ─── Streaming display ──────────────────────────────────────────────────────

func (m *model) displayConfig() display.Config {
	return display.Config{
		ChainOfThoughtEnabled: m.cfg.ChainOfThought,
		ShowReasoning:         m.cfg.ShowReasoning,
	}
}

// handleSnapshot classifies the accumulated snapshot and flushes newly
// completed lines of the formatted output. The trailing partial line stays
// in liveLine and renders in View until it completes.
func (m *model) handleSnapshot(snapshot string) tea.Cmd {
	c := response.ClassifyPartial(snapshot, m.parser)
	formatted := display.FormatForDisplay(c, m.displayConfig())
	return m.emitFormatted(formatted, false)
}

// emitFormatted prints whatever the new formatted output adds over what has
// already been flushed. Formatted output normally grows by appending; when
// the classifier reinterprets text that was already flushed (a marker
// arriving mid-line of something shown as answer text) the block restarts
// on a fresh line.
func (m *model) emitFormatted(formatted string, final bool) tea.Cmd {
	var cmds []tea.Cmd

	if !strings.HasPrefix(formatted, m.printedPrefix) {
		if m.printedPrefix != "" {
			cmds = append(cmds, tea.Println(""))
		}
		m.printedPrefix = ""
	}

	pending := formatted[len(m.printedPrefix):]
	if final {
		if pending != "" {
			for _, line := range strings.Split(pending, "\n") {
				cmds = append(cmds, tea.Println("  "+m.styleLine(line)))
			}
		}
		m.printedPrefix = formatted
		m.liveLine = ""
	} else {
		if idx := strings.LastIndexByte(pending, '\n'); idx >= 0 {
			for _, line := range strings.Split(pending[:idx], "\n") {
				cmds = append(cmds, tea.Println("  "+m.styleLine(line)))
			}
			m.printedPrefix += pending[:idx+1]
		}
		m.liveLine = formatted[len(m.printedPrefix):]
	}

	if len(cmds) > 0 {
		m.streamedVisible = true
		return tea.Sequence(cmds...)
	}
	return nil
}

// styleLine dims reasoning lines so the final answer stands out.
func (m *model) styleLine(line string) string {
	if strings.HasPrefix(line, response.ThinkingMarker) {
		return reasoningStyle.Render(line)
	}
	return line
}

func (m model) handleStreamDone(msg streamDoneMsg) (tea.Model, tea.Cmd) {
	m.mode = modeIdle
	activeStreamCh = nil

	var cmds []tea.Cmd
	c := response.ClassifyComplete(msg.text, m.parser)
	formatted := display.FormatForDisplay(c, m.displayConfig())
	if printCmd := m.emitFormatted(formatted, true); printCmd != nil {
		cmds = append(cmds, printCmd)
	}

	cmds = append(cmds, m.finishTurn(c, msg.text, msg.usage)...)
	m.resetStreamState()
	return m, tea.Sequence(cmds...)
}

func (m model) handleCompleteResult(msg completeResultMsg) (tea.Model, tea.Cmd) {
	m.mode = modeIdle

	if msg.err != nil {
		m.resetStreamState()
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", msg.err)))
	}

	var cmds []tea.Cmd
	c := response.ClassifyComplete(msg.text, m.parser)
	formatted := display.FormatForDisplay(c, m.displayConfig())
	if printCmd := m.emitFormatted(formatted, true); printCmd != nil {
		cmds = append(cmds, printCmd)
	}

	cmds = append(cmds, m.finishTurn(c, msg.text, msg.usage)...)
	m.resetStreamState()
	return m, tea.Sequence(cmds...)
}

// finishTurn persists the exchange and updates the running token counter.
func (m *model) finishTurn(c response.Classification, raw string, usage *api.Usage) []tea.Cmd {
	used := 0
	if usage != nil {
		used = usage.TotalTokens
	} else if m.counter != nil {
		used = m.counter.CountAll(m.streamPrompt, raw)
	}

	m.session.AddTurn(history.Turn{
		Prompt:    m.streamPrompt,
		Reasoning: c.Reasoning,
		Answer:    c.Answer,
		Stage:     c.Stage.String(),
		Tokens:    used,
	})

	var cmds []tea.Cmd
	if err := history.Save(m.session); err != nil {
		cmds = append(cmds, tea.Println(warnMsgStyle.Render(fmt.Sprintf("  ! Could not save session: %v", err))))
	}

	m.cfg.AddTokens(used)
	m.cfg.LastSession = m.session.ID
	if err := m.cfg.Save(); err != nil {
		cmds = append(cmds, tea.Println(warnMsgStyle.Render(fmt.Sprintf("  ! Could not save config: %v", err))))
	}

	cmds = append(cmds, tea.Println(dimStyle.Render(fmt.Sprintf("    %d tokens · %d total", used, m.cfg.TokensUsed))))
	// Blank separator only when reply text was actually flushed above it.
	if m.streamedVisible {
		cmds = append(cmds, tea.Println(""))
	}
	return cmds
}

func (m model) cancelStream() (tea.Model, tea.Cmd) {
	m.mode = modeIdle
	activeStreamCh = nil
	m.resetStreamState()
	return m, tea.Println(warnMsgStyle.Render("  ! Request cancelled."))
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: View() only shows the input prompt + hints.
// All output is printed above via tea.Println.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	// Input or streaming indicator
	if m.mode == modeStreaming {
		if m.liveLine != "" {
			s.WriteString("  " + m.styleLine(m.liveLine) + "\n")
		}
		s.WriteString(m.spinner.View() + " " + statusStyle.Render("Waiting for reply..."))
	} else {
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	// Separator
	sepWidth := min(m.width, 80)
	if sepWidth < 20 {
		sepWidth = 20
	}
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	// Hint bar
	s.WriteString(m.renderHints())

	return s.String()
}

// ─── Hint bar ───────────────────────────────────────────────────────────────

func (m model) renderHints() string {
	if m.mode == modeStreaming {
		return hintBarStyle.Render("  Esc cancel")
	}

	if m.mode == modeLoginServer || m.mode == modeLoginKey {
		return hintBarStyle.Render("  Enter submit   Esc cancel")
	}

	if m.cmdMenuOpen {
		matches := matchCommands(m.input.Value())
		if len(matches) > 0 {
			return m.renderCommandMenu(matches)
		}
	}

	return hintBarStyle.Render("  ? for help")
}

// renderCommandMenu renders a vertical list of matching commands.
func (m model) renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		if len(c.name) > maxLen {
			maxLen = len(c.name)
		}
	}

	var lines []string
	for i, c := range matches {
		padded := c.name
		for len(padded) < maxLen {
			padded += " "
		}

		var line string
		if i == m.cmdMenuIdx {
			line = "  " + cmdSelectedNameStyle.Render(padded) + "  " + cmdSelectedDescStyle.Render(c.desc)
		} else {
			line = "  " + cmdNameStyle.Render(padded) + "  " + cmdDescStyle.Render(c.desc)
		}
		lines = append(lines, line)
	}

	lines = append(lines, hintBarStyle.Render("  ↑↓ navigate  Tab/Enter select"))

	return strings.Join(lines, "\n")
}

// matchCommands returns all slash commands matching a prefix.
func matchCommands(prefix string) []slashCmd {
	prefix = strings.ToLower(prefix)
	if prefix == "/" {
		return slashCommands
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (m *model) resetStreamState() {
	m.parser = nil
	m.streamPrompt = ""
	m.printedPrefix = ""
	m.liveLine = ""
	m.streamedVisible = false
}

func truncateID(s string) string {
	if len(s) > 20 {
		return s[:8] + "..." + s[len(s)-4:]
	}
	return s
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
