package app

import (
	"os"
	"path/filepath"
	"testing"
)

// TestNewApp_InitializesAllServices verifies that NewApp creates an App with
// clients, services, and storage initialized and non-nil.
func TestNewApp_InitializesAllServices(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if a.Config == nil {
		t.Error("Config is nil")
	}
	if a.Logger == nil {
		t.Error("Logger is nil")
	}
	if a.Storage == nil {
		t.Error("Storage is nil")
	}
	if a.SheetClient == nil {
		t.Error("SheetClient is nil")
	}
	if a.MarketClient == nil {
		t.Error("MarketClient is nil")
	}
	if a.QuoteService == nil {
		t.Error("QuoteService is nil")
	}
	if a.ValuationService == nil {
		t.Error("ValuationService is nil")
	}
	if a.LedgerService == nil {
		t.Error("LedgerService is nil")
	}
	if a.StartupTime.IsZero() {
		t.Error("StartupTime is zero")
	}
}

// TestNewApp_ConfigDefaults verifies the sheet and valuation defaults survive
// a minimal config file.
func TestNewApp_ConfigDefaults(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	if got := a.Config.Clients.Sheets.HoldingsSheet; got != "assets" {
		t.Errorf("HoldingsSheet = %q, want %q", got, "assets")
	}
	if got := a.Config.Clients.Sheets.HistorySheet; got != "history" {
		t.Errorf("HistorySheet = %q, want %q", got, "history")
	}
	if got := a.Config.Valuation.RateTicker; got != "USDKRW=X" {
		t.Errorf("RateTicker = %q, want %q", got, "USDKRW=X")
	}
	if got := a.Config.Valuation.RateFallback; got != 1450 {
		t.Errorf("RateFallback = %v, want 1450", got)
	}
}

// TestApp_ForceRefresh verifies a refresh pass does not disturb the wiring.
func TestApp_ForceRefresh(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer a.Close()

	a.ForceRefresh()
	a.ForceRefresh()
}

// TestApp_CloseIsIdempotent verifies Close can be called twice safely.
func TestApp_CloseIsIdempotent(t *testing.T) {
	configPath := writeTestConfig(t)

	a, err := NewApp(configPath)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	a.Close()
	a.Close()
}

// writeTestConfig creates a minimal config file in a temp directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	os.MkdirAll(filepath.Join(dir, "data"), 0755)

	config := `
[storage]
path = "` + filepath.Join(dir, "data") + `"

[clients.sheets]
sheet_id = "test-sheet"

[logging]
level = "error"
format = "console"
`
	configPath := filepath.Join(dir, "wealthtower.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
