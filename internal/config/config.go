package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	configDir  = ".thinkchat"
	configFile = "config.json"

	// DefaultModel is used when no model has been configured.
	DefaultModel = "gpt-4o-mini"
)

// Config holds the persisted client settings. One file per profile lives
// under ~/.thinkchat; the default profile uses config.json and named
// profiles use config-<name>.json.
type Config struct {
	Server         string `json:"server"`
	APIKey         string `json:"api_key"`
	Model          string `json:"model,omitempty"`
	ChainOfThought bool   `json:"chain_of_thought"`
	ShowReasoning  bool   `json:"show_reasoning"`
	Stream         bool   `json:"stream"`
	TokensUsed     int    `json:"tokens_used,omitempty"`
	LastSession    string `json:"last_session,omitempty"`
	Profile        string `json:"-"`
}

// Defaults returns a fresh config with the out-of-the-box behavior:
// chain-of-thought prompting on, reasoning visible, streaming enabled.
func Defaults(profile string) *Config {
	return &Config{
		Model:          DefaultModel,
		ChainOfThought: true,
		ShowReasoning:  true,
		Stream:         true,
		Profile:        profile,
	}
}

func configPath(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	name := configFile
	if profile != "" {
		name = fmt.Sprintf("config-%s.json", profile)
	}
	return filepath.Join(home, configDir, name), nil
}

// Load reads the config for the given profile. A missing file is not an
// error: it returns defaults so first-run commands can guide the user.
func Load(profile string) (*Config, error) {
	path, err := configPath(profile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(profile), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.Profile = profile
	return cfg, nil
}

func (c *Config) Save() error {
	path, err := configPath(c.Profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) profileFlag() string {
	if c.Profile == "" {
		return ""
	}
	return fmt.Sprintf(" --profile %s", c.Profile)
}

// Validate checks that the config is usable for talking to a server.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("no server configured, run 'thinkchat login%s' first", c.profileFlag())
	}
	if c.APIKey == "" {
		return fmt.Errorf("no API key configured, run 'thinkchat login%s' first", c.profileFlag())
	}
	return nil
}

// AddTokens bumps the running usage counter. Callers are expected to Save
// once the request finishes.
func (c *Config) AddTokens(n int) {
	if n > 0 {
		c.TokensUsed += n
	}
}

// ListProfiles returns the profile names that have a config file on disk,
// default first.
func ListProfiles() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("finding home directory: %w", err)
	}

	entries, err := os.ReadDir(filepath.Join(home, configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config directory: %w", err)
	}

	var profiles []string
	for _, e := range entries {
		name := e.Name()
		if name == configFile {
			profiles = append([]string{"default"}, profiles...)
			continue
		}
		if strings.HasPrefix(name, "config-") && strings.HasSuffix(name, ".json") {
			profiles = append(profiles, strings.TrimSuffix(strings.TrimPrefix(name, "config-"), ".json"))
		}
	}
	return profiles, nil
}

// ProfileName returns a human-readable name for a profile value.
func ProfileName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
