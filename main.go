package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"thinkchat/internal/api"
	"thinkchat/internal/config"
	"thinkchat/internal/display"
	"thinkchat/internal/history"
	"thinkchat/internal/response"
	"thinkchat/internal/tokens"
	"thinkchat/internal/tui"
)

// Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	activeProfile string
	jsonOutput    bool
)

func main() {
	args := os.Args[1:]

	// Parse global flags first (--profile)
	args = parseGlobalFlags(args)

	// No args → launch interactive mode (default)
	if len(args) == 0 {
		if err := tui.Run(version, activeProfile, ""); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	// Explicit -i flag also launches interactive mode
	if args[0] == "-i" || args[0] == "--interactive" || args[0] == "interactive" {
		if err := tui.Run(version, activeProfile, ""); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	var err error

	switch args[0] {
	case "login":
		err = cmdLogin(args[1:])
	case "set":
		err = cmdSet(args[1:])
	case "config":
		err = cmdConfig()
	case "ask":
		err = cmdAsk(args[1:])
	case "resume":
		err = cmdResume(args[1:])
	case "models":
		err = cmdModels()
	case "history":
		err = cmdHistory(args[1:])
	case "show":
		err = cmdShow(args[1:])
	case "delete":
		err = cmdDelete(args[1:])
	case "profiles":
		err = cmdProfiles()
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Println(versionString())
	default:
		display.Error(fmt.Sprintf("Unknown command: %s", args[0]))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		display.Error(err.Error())
		os.Exit(1)
	}
}

// ─── login ───────────────────────────────────────────────────────────────────

func cmdLogin(args []string) error {
	var apiKey string
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-k", "--key":
			if i+1 < len(args) {
				i++
				apiKey = args[i]
			} else {
				return fmt.Errorf("--key requires a value")
			}
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) == 0 {
		fmt.Println("Usage: thinkchat login <server-url> [-k <api-key>]")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  thinkchat login https://api.openai.com -k sk-...")
		fmt.Println("  thinkchat login http://localhost:11434")
		return nil
	}

	serverURL := api.NormalizeServerURL(positional[0])

	if apiKey == "" {
		fmt.Print("API key: ")
		fmt.Scanln(&apiKey)
	}
	if apiKey == "" {
		return fmt.Errorf("an API key is required")
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	cfg.Server = serverURL
	cfg.APIKey = apiKey

	fmt.Println()
	display.Spinner("Verifying credentials...")

	client := api.NewClient(cfg)
	if _, err := client.ListModels(); err != nil {
		display.ClearLine()
		return fmt.Errorf("verification failed: %w", err)
	}

	display.ClearLine()
	display.Success("Connected successfully")

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Info("Server:", serverURL)
	display.Info("Model:", cfg.Model)

	pf := ""
	if activeProfile != "" {
		pf = " --profile " + activeProfile
	}

	fmt.Println()
	fmt.Printf("  %sNext:%s Run %sthinkchat%s ask \"<question>\"%s to start chatting.\n\n",
		display.Dim, display.Reset, display.Cyan, pf, display.Reset)

	return nil
}

// ─── set ────────────────────────────────────────────────────────────────────

func cmdSet(args []string) error {
	if len(args) < 2 {
		fmt.Println("Usage: thinkchat set <key> <value>")
		fmt.Println()
		fmt.Println("Keys:")
		fmt.Println("  server     Chat server URL  (e.g. https://api.openai.com)")
		fmt.Println("  key        API key")
		fmt.Println("  model      Model name (e.g. gpt-4o-mini)")
		fmt.Println("  cot        Chain-of-thought prompting (on/off)")
		fmt.Println("  reasoning  Show reasoning segments (on/off)")
		fmt.Println("  stream     Stream responses (on/off)")
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	key, value := args[0], args[1]

	switch key {
	case "server":
		cfg.Server = api.NormalizeServerURL(value)
	case "key":
		cfg.APIKey = value
	case "model":
		cfg.Model = value
	case "cot":
		on, err := parseOnOff(value)
		if err != nil {
			return err
		}
		cfg.ChainOfThought = on
	case "reasoning":
		on, err := parseOnOff(value)
		if err != nil {
			return err
		}
		cfg.ShowReasoning = on
	case "stream":
		on, err := parseOnOff(value)
		if err != nil {
			return err
		}
		cfg.Stream = on
	default:
		return fmt.Errorf("unknown config key: %s (valid: server, key, model, cot, reasoning, stream)", key)
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("%s set to %s", key, value))
	return nil
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", value)
}

// ─── config ─────────────────────────────────────────────────────────────────

func cmdConfig() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cfg)
	}

	display.Header("ThinkChat Configuration")

	display.Info("Profile:", config.ProfileName(activeProfile))

	server := cfg.Server
	if server == "" {
		server = display.Dim + "(not set)" + display.Reset
	}
	display.Info("Server:", server)

	key := display.Dim + "(not set)" + display.Reset
	if cfg.APIKey != "" {
		end := 8
		if len(cfg.APIKey) < end {
			end = len(cfg.APIKey)
		}
		key = cfg.APIKey[:end] + "..."
	}
	display.Info("API Key:", key)

	display.Info("Model:", cfg.Model)
	display.Info("Chain of thought:", onOff(cfg.ChainOfThought))
	display.Info("Show reasoning:", onOff(cfg.ShowReasoning))
	display.Info("Streaming:", onOff(cfg.Stream))
	display.Info("Tokens used:", strconv.Itoa(cfg.TokensUsed))

	session := cfg.LastSession
	if session == "" {
		session = display.Dim + "(none)" + display.Reset
	}
	display.Info("Last Session:", session)
	fmt.Println()

	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// ─── ask ────────────────────────────────────────────────────────────────────

func cmdAsk(args []string) error {
	var sessionID string
	var noStream, plain bool
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-s", "--session":
			if i+1 < len(args) {
				i++
				sessionID = args[i]
			} else {
				return fmt.Errorf("--session requires a value")
			}
		case "--no-stream":
			noStream = true
		case "--plain":
			plain = true
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) == 0 {
		fmt.Println("Usage: thinkchat ask <question> [--session <id>] [--no-stream] [--plain]")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  thinkchat ask "What is a goroutine?"`)
		fmt.Println(`  thinkchat ask "Show me an example" --session <id>`)
		return nil
	}
	prompt := strings.Join(positional, " ")

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	var session *history.Session
	if sessionID != "" {
		session, err = history.Load(sessionID)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
	} else {
		session = history.NewSession(cfg.Model)
	}

	messages := api.BuildMessages(cfg.ChainOfThought, session.Messages(), prompt)
	dispCfg := display.Config{
		ChainOfThoughtEnabled: cfg.ChainOfThought,
		ShowReasoning:         cfg.ShowReasoning,
	}

	fmt.Println()

	var raw string
	var usage *api.Usage
	var c response.Classification

	if cfg.Stream && !noStream {
		state := response.NewParserState()
		printer := display.NewStreamPrinter(os.Stdout)

		raw, usage, err = client.CompleteStream(messages, func(snapshot string) {
			partial := response.ClassifyPartial(snapshot, state)
			printer.Update(display.FormatForDisplay(partial, dispCfg))
		})
		printer.Finish()
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}
		c = response.ClassifyComplete(raw, state)
	} else {
		display.Spinner("Waiting for reply...")
		resp, cerr := client.Complete(messages)
		display.ClearLine()
		if cerr != nil {
			return cerr
		}
		raw = resp.Choices[0].Message.Content
		usage = resp.Usage
		c = response.ClassifyComplete(raw, nil)

		if cfg.ChainOfThought && c.Structured && cfg.ShowReasoning && c.Reasoning != "" {
			fmt.Printf("%s%s %s%s\n\n", display.Magenta, response.ThinkingMarker, c.Reasoning, display.Reset)
		}
		switch {
		case c.Answer == "":
			display.Warn("The model returned no answer.")
		case plain:
			fmt.Println(c.Answer)
		default:
			fmt.Println(display.RenderMarkdown(c.Answer, 80))
		}
	}

	used := 0
	if usage != nil {
		used = usage.TotalTokens
	} else if counter, cerr := tokens.NewCounter(cfg.Model); cerr == nil {
		used = counter.CountAll(prompt, raw)
	}

	session.AddTurn(history.Turn{
		Prompt:    prompt,
		Reasoning: c.Reasoning,
		Answer:    c.Answer,
		Stage:     c.Stage.String(),
		Tokens:    used,
	})
	if err := history.Save(session); err != nil {
		display.Warn(fmt.Sprintf("Could not save session: %v", err))
	}

	cfg.AddTokens(used)
	cfg.LastSession = session.ID
	_ = cfg.Save()

	fmt.Println()
	fmt.Printf("  %s%d tokens · session %s%s\n", display.Dim, used, session.ID, display.Reset)
	fmt.Printf("  %sTip:%s Run %sthinkchat ask \"...\" -s %s%s to continue this conversation.\n\n",
		display.Dim, display.Reset, display.Cyan, session.ID, display.Reset)

	return nil
}

// ─── resume ─────────────────────────────────────────────────────────────────

func cmdResume(args []string) error {
	sessionID := ""
	if len(args) > 0 {
		sessionID = args[0]
	} else {
		cfg, err := config.Load(activeProfile)
		if err != nil {
			return err
		}
		sessionID = cfg.LastSession
	}

	if sessionID == "" {
		fmt.Println("Usage: thinkchat resume [session-id]")
		return nil
	}

	return tui.Run(version, activeProfile, sessionID)
}

// ─── models ─────────────────────────────────────────────────────────────────

func cmdModels() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	resp, err := client.ListModels()
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	if jsonOutput {
		return printJSON(resp.Data)
	}

	display.Header(fmt.Sprintf("Models (%d)", len(resp.Data)))

	if len(resp.Data) == 0 {
		display.Warn("No models found.")
		return nil
	}

	for _, m := range resp.Data {
		marker := " "
		if m.ID == cfg.Model {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, m.ID)
	}

	fmt.Println()
	fmt.Printf("  %sTip:%s Run %sthinkchat set model <name>%s to switch models.\n\n",
		display.Dim, display.Reset, display.Cyan, display.Reset)

	return nil
}

// ─── history ────────────────────────────────────────────────────────────────

func cmdHistory(args []string) error {
	limit := 20

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n", "--limit":
			if i+1 < len(args) {
				i++
				n, err := strconv.Atoi(args[i])
				if err != nil {
					return fmt.Errorf("invalid limit: %s", args[i])
				}
				limit = n
			}
		}
	}

	sessions, err := history.List()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	if jsonOutput {
		return printJSON(sessions)
	}

	display.Header(fmt.Sprintf("Sessions (%d)", len(sessions)))

	if len(sessions) == 0 {
		display.Warn("No sessions found.")
		return nil
	}

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = display.Dim + "(untitled)" + display.Reset
		}

		stage := ""
		if len(s.Turns) > 0 {
			stage = display.StageLabel(s.Turns[len(s.Turns)-1].Stage)
		}

		fmt.Printf("\n  💬 %s%s%s\n", display.Bold, title, display.Reset)
		if n := len(s.Turns); n > 0 && s.Turns[n-1].Answer != "" {
			fmt.Printf("    %s%s%s\n", display.Gray, truncate(s.Turns[n-1].Answer, 90), display.Reset)
		}
		fmt.Printf("    %sID:%s      %s\n", display.Dim, display.Reset, s.ID)
		fmt.Printf("    %sUpdated:%s %s\n", display.Dim, display.Reset, display.FormatTime(s.LastUpdate))
		fmt.Printf("    %sTurns:%s   %d", display.Dim, display.Reset, len(s.Turns))
		if stage != "" {
			fmt.Printf("  %s", stage)
		}
		fmt.Println()
	}

	fmt.Println()
	fmt.Println(strings.Repeat("─", 80))
	fmt.Printf("  %sTip:%s Run %sthinkchat show <session-id>%s to see the full conversation.\n\n",
		display.Dim, display.Reset, display.Cyan, display.Reset)

	return nil
}

// ─── show ───────────────────────────────────────────────────────────────────

func cmdShow(args []string) error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	sessionID := ""
	if len(args) > 0 {
		sessionID = args[0]
	} else if cfg.LastSession != "" {
		sessionID = cfg.LastSession
	} else {
		fmt.Println("Usage: thinkchat show [session-id]")
		return nil
	}

	session, err := history.Load(sessionID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	if jsonOutput {
		return printJSON(session)
	}

	title := session.Title
	if title == "" {
		title = "(untitled)"
	}
	display.Header(fmt.Sprintf("Session: %s", title))
	display.Info("ID:", session.ID)
	display.Info("Model:", session.Model)
	display.Info("Created:", display.FormatTime(session.CreateTime))
	display.Info("Updated:", display.FormatTime(session.LastUpdate))
	display.Info("Tokens:", strconv.Itoa(session.TotalTokens()))

	if len(session.Turns) == 0 {
		fmt.Println()
		display.Warn("No turns recorded.")
		return nil
	}

	for i, turn := range session.Turns {
		fmt.Println()
		display.SubHeader(fmt.Sprintf("── Turn %d ──", i+1))

		fmt.Printf("  %s❯%s %s\n", display.Cyan, display.Reset, turn.Prompt)

		if turn.Reasoning != "" {
			fmt.Printf("\n  %s%s%s\n", display.Magenta, response.ThinkingMarker, display.Reset)
			for _, line := range wrapText(turn.Reasoning, 76) {
				fmt.Printf("    %s%s%s\n", display.Gray, line, display.Reset)
			}
		}

		if turn.Answer != "" {
			fmt.Printf("\n  %s%s%s\n", display.Green, response.AnswerMarker, display.Reset)
			for _, line := range strings.Split(display.RenderMarkdown(turn.Answer, 76), "\n") {
				fmt.Printf("    %s\n", line)
			}
		}

		fmt.Printf("\n  %sStage:%s %s", display.Dim, display.Reset, display.StageLabel(turn.Stage))
		if turn.Tokens > 0 {
			fmt.Printf("  %s·%s %d tokens", display.Dim, display.Reset, turn.Tokens)
		}
		fmt.Println()
	}

	fmt.Println()
	return nil
}

// ─── delete ─────────────────────────────────────────────────────────────────

func cmdDelete(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: thinkchat delete <session-id>")
		return nil
	}

	if err := history.Delete(args[0]); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	display.Success(fmt.Sprintf("Deleted session %s", args[0]))
	return nil
}

// ─── profiles ───────────────────────────────────────────────────────────────

func cmdProfiles() error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return err
	}

	display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

	if len(profiles) == 0 {
		display.Warn("No profiles found.")
		return nil
	}

	for _, p := range profiles {
		marker := " "
		if p == config.ProfileName(activeProfile) {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, p)
	}
	fmt.Println()

	return nil
}

// ─── helpers ────────────────────────────────────────────────────────────────

func wrapText(text string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		if paragraph == "" {
			lines = append(lines, "")
			continue
		}
		words := strings.Fields(paragraph)
		current := ""
		for _, word := range words {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

func parseGlobalFlags(args []string) []string {
	var remaining []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--profile":
			if i+1 < len(args) {
				i++
				activeProfile = args[i]
			}
		case "-j", "--json":
			jsonOutput = true
		default:
			remaining = append(remaining, args[i])
		}
	}
	return remaining
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func versionString() string {
	s := "thinkchat " + version
	if commit != "" && commit != "none" {
		s += "\n  commit: " + commit
		s += "\n  built:  " + date
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// ─── usage ──────────────────────────────────────────────────────────────────

func printUsage() {
	fmt.Printf(`%sThinkChat%s — Structured chat client for OpenAI-compatible servers (v%s)

%sUsage:%s
  thinkchat                                          Launch interactive mode (default)
  thinkchat [--profile <name>] <command> [arguments] Run a specific command

%sGetting Started:%s
  login <url> [-k <key>]    Connect to a chat server
  models                    List available models
  set model <name>          Pick the model to chat with
  config                    Show current configuration

%sSettings:%s
  set server <url>          Override the server URL
  set key <api-key>         Set the API key
  set model <name>          Set the model name
  set cot on|off            Toggle chain-of-thought prompting
  set reasoning on|off      Toggle showing reasoning segments
  set stream on|off         Toggle response streaming

%sChat:%s
  ask "<question>"          Ask a single question (streams output)
    -s, --session <id>      Continue an existing conversation
    --no-stream             Wait for the complete reply
    --plain                 Skip markdown rendering
  resume [session-id]       Open interactive mode on a saved conversation

%sHistory:%s
  history                   List saved conversations
    -n, --limit <count>     Number of conversations to list (default: 20)
  show [session-id]         View a conversation (defaults to last session)
  delete <session-id>       Delete a saved conversation

%sProfiles:%s
  profiles                  List all config profiles
  --profile <name>          Use a named config profile (default: unnamed)

%sExamples:%s
  thinkchat                                          # Start interactive mode
  thinkchat login https://api.openai.com -k sk-...
  thinkchat set model gpt-4o-mini
  thinkchat ask "What is a goroutine?"
  thinkchat ask "Show me an example" -s <session-id>
  thinkchat history
  thinkchat --profile work login http://localhost:11434

`, display.Bold, display.Reset, version,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset)
}
