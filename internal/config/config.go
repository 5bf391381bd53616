package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/folders"
)

// AccountConfig describes one configured mail account.
type AccountConfig struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	// Protocol is "imap" or "pop". POP accounts keep folder mutations local.
	Protocol    string `json:"protocol"`
	Credentials string `json:"credentials,omitempty"`
	Token       string `json:"token,omitempty"`
	Color       string `json:"color,omitempty"`
}

// Config holds all configuration for the folder screen.
type Config struct {
	Accounts []AccountConfig `json:"accounts"`

	// DefaultView is "combined", "single-account", "move-target" or
	// "account-list".
	DefaultView string `json:"default_view"`

	// DefaultAccount scopes the single-account view.
	DefaultAccount int64 `json:"default_account,omitempty"`

	// Palette is the path of the YAML account-color palette.
	Palette string `json:"palette,omitempty"`

	// StateDB is the SQLite file holding expand state and color cache.
	StateDB string `json:"state_db,omitempty"`

	// Logging
	LogFile string `json:"log_file,omitempty"`
}

// DefaultConfig returns the built-in defaults used when no config file is
// present.
func DefaultConfig() *Config {
	return &Config{
		DefaultView: folders.ViewCombined.String(),
		StateDB:     DefaultStateDBPath(),
		LogFile:     "",
	}
}

// DefaultConfigPath returns ~/.config/mailfold/config.json.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mailfold", "config.json")
}

// DefaultStateDBPath returns ~/.config/mailfold/state.db.
func DefaultStateDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mailfold", "state.db")
}

// LoadConfig loads the config file over the defaults. A missing file is not
// an error; malformed JSON is.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

// SaveConfig writes the config as indented JSON.
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// ViewMode resolves the configured default view.
func (c *Config) ViewMode() (folders.ViewMode, error) {
	switch c.DefaultView {
	case "", folders.ViewCombined.String():
		return folders.ViewCombined, nil
	case folders.ViewSingleAccount.String():
		return folders.ViewSingleAccount, nil
	case folders.ViewMoveTarget.String():
		return folders.ViewMoveTarget, nil
	case folders.ViewAccountList.String():
		return folders.ViewAccountList, nil
	default:
		return 0, fmt.Errorf("unknown view mode %q", c.DefaultView)
	}
}

// EngineAccounts converts the configured accounts into engine records.
func (c *Config) EngineAccounts() []engine.Account {
	out := make([]engine.Account, 0, len(c.Accounts))
	for _, acct := range c.Accounts {
		protocol := engine.ProtocolIMAP
		if acct.Protocol == string(engine.ProtocolPOP) {
			protocol = engine.ProtocolPOP
		}
		out = append(out, engine.Account{
			ID:          acct.ID,
			DisplayName: acct.DisplayName,
			Protocol:    protocol,
		})
	}
	return out
}

// AccountColors returns the configured colors keyed by account id, filling
// gaps from the palette when one is provided.
func (c *Config) AccountColors(palette *Palette) map[int64]string {
	out := make(map[int64]string, len(c.Accounts))
	for i, acct := range c.Accounts {
		color := acct.Color
		if color == "" && palette != nil {
			color = palette.ColorAt(i)
		}
		if color != "" {
			out[acct.ID] = color
		}
	}
	return out
}
