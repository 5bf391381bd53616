package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailfold/mailfold/internal/engine"
	"github.com/mailfold/mailfold/internal/folders"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, folders.ViewCombined.String(), cfg.DefaultView)
	assert.Empty(t, cfg.Accounts)
}

func TestLoadConfigMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.DefaultView = folders.ViewSingleAccount.String()
	cfg.DefaultAccount = 2
	cfg.Accounts = []AccountConfig{
		{ID: 1, DisplayName: "Work", Protocol: "imap", Color: "#112233"},
		{ID: 2, DisplayName: "Old", Protocol: "pop"},
	}

	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.DefaultView, loaded.DefaultView)
	assert.Equal(t, cfg.DefaultAccount, loaded.DefaultAccount)
	assert.Equal(t, cfg.Accounts, loaded.Accounts)
}

func TestViewMode(t *testing.T) {
	tests := []struct {
		in      string
		want    folders.ViewMode
		wantErr bool
	}{
		{in: "", want: folders.ViewCombined},
		{in: "combined", want: folders.ViewCombined},
		{in: "single-account", want: folders.ViewSingleAccount},
		{in: "move-target", want: folders.ViewMoveTarget},
		{in: "account-list", want: folders.ViewAccountList},
		{in: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		cfg := &Config{DefaultView: tt.in}
		mode, err := cfg.ViewMode()
		if tt.wantErr {
			assert.Error(t, err, "view %q", tt.in)
			continue
		}
		require.NoError(t, err, "view %q", tt.in)
		assert.Equal(t, tt.want, mode, "view %q", tt.in)
	}
}

func TestEngineAccounts(t *testing.T) {
	cfg := &Config{Accounts: []AccountConfig{
		{ID: 1, DisplayName: "Work", Protocol: "imap"},
		{ID: 2, DisplayName: "Old", Protocol: "pop"},
		{ID: 3, DisplayName: "Typo", Protocol: "carrier-pigeon"},
	}}

	got := cfg.EngineAccounts()
	require.Len(t, got, 3)
	assert.Equal(t, engine.ProtocolIMAP, got[0].Protocol)
	assert.Equal(t, engine.ProtocolPOP, got[1].Protocol)
	assert.Equal(t, engine.ProtocolIMAP, got[2].Protocol, "unknown protocols default to IMAP")
}

func TestAccountColorsPaletteFallback(t *testing.T) {
	cfg := &Config{Accounts: []AccountConfig{
		{ID: 1, Color: "#abcdef"},
		{ID: 2},
		{ID: 3},
	}}
	palette := &Palette{Cycle: []string{"#one", "#two"}}

	got := cfg.AccountColors(palette)
	assert.Equal(t, "#abcdef", got[1], "explicit color wins over the palette")
	assert.Equal(t, "#two", got[2])
	assert.Equal(t, "#one", got[3], "cycle wraps around")
}

func TestLoadPalette(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: ocean
cycle:
  - "#004488"
  - "#0077aa"
named:
  accent: "#00ccff"
`), 0o600))

	palette, err := LoadPalette(path)
	require.NoError(t, err)
	assert.Equal(t, "ocean", palette.Name)
	assert.Equal(t, "#004488", palette.ColorAt(0))
	assert.Equal(t, "#004488", palette.ColorAt(2))
	assert.Equal(t, "#00ccff", palette.Lookup("accent"))
	assert.Equal(t, "#ff0000", palette.Lookup("#ff0000"), "unnamed values pass through")
}

func TestLoadPaletteEmptyCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: hollow\ncycle: []\n"), 0o600))

	_, err := LoadPalette(path)
	assert.Error(t, err)
}
