package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KAKEIBO_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Server.Port != "8080" {
		t.Errorf("port = %q, want 8080", c.Server.Port)
	}
	if c.Sheets.Ledger != "Ledger" || c.Sheets.HeaderRows != 4 {
		t.Errorf("sheets defaults = %+v", c.Sheets)
	}
	if c.Budget.Monthly != 2207 {
		t.Errorf("monthly budget = %v, want 2207", c.Budget.Monthly)
	}
	if c.Budget.Overrides["2"] != 97 {
		t.Errorf("february override = %v, want 97", c.Budget.Overrides["2"])
	}
	if c.Assets.TotalName != "total" {
		t.Errorf("total name = %q, want total", c.Assets.TotalName)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
port = "9090"

[sheets]
spreadsheet_id = "sheet-123"
header_rows = 2

[budget]
monthly = 1500.0

[budget.overrides]
"8" = 200.0

[[trigger]]
key = "payday"
label = "Salary"
amount = 4000.0
inflow = true
day = 25
account = "primary cash"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KAKEIBO_CONFIG", path)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", c.Server.Port)
	}
	if c.Sheets.SpreadsheetID != "sheet-123" {
		t.Errorf("spreadsheet id = %q", c.Sheets.SpreadsheetID)
	}
	if c.Sheets.HeaderRows != 2 {
		t.Errorf("header rows = %d, want 2", c.Sheets.HeaderRows)
	}
	if len(c.Trigger) != 1 || c.Trigger[0].Key != "payday" {
		t.Fatalf("triggers = %+v", c.Trigger)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("KAKEIBO_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("KAKEIBO_SHEETS_SPREADSHEET_ID", "env-sheet")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Sheets.SpreadsheetID != "env-sheet" {
		t.Errorf("spreadsheet id = %q, want env-sheet", c.Sheets.SpreadsheetID)
	}
}

func TestBudgetSchedule(t *testing.T) {
	c := Config{Budget: BudgetConfig{
		Monthly:   2207,
		Overrides: map[string]float64{"2": 97, "13": 1, "x": 2},
	}}

	b := c.BudgetSchedule()
	if b.Default.String() != "2207" {
		t.Errorf("default = %s, want 2207", b.Default)
	}
	if len(b.Overrides) != 1 {
		t.Errorf("overrides = %v, want only month 2", b.Overrides)
	}
	if b.Overrides[2].String() != "97" {
		t.Errorf("override = %s, want 97", b.Overrides[2])
	}
}

func TestTriggers(t *testing.T) {
	c := Config{Trigger: []TriggerConfig{
		{Key: "telecom", Label: "Telecom bill", Amount: 60, Day: 10, Account: "primary cash"},
	}}

	trigs := c.Triggers()
	if len(trigs) != 1 {
		t.Fatalf("triggers = %d, want 1", len(trigs))
	}
	if trigs[0].Amount.String() != "60" || trigs[0].Day != 10 {
		t.Errorf("trigger = %+v", trigs[0])
	}
}

func TestSheetsClientConfig(t *testing.T) {
	c := Config{
		Sheets: SheetsConfig{SpreadsheetID: "s", Ledger: "L", HeaderRows: 4},
		Assets: AssetsConfig{TotalName: "total"},
	}

	sc := c.SheetsClientConfig()
	if sc.SpreadsheetID != "s" || sc.LedgerSheet != "L" || sc.LedgerHeaderRows != 4 || sc.TotalName != "total" {
		t.Errorf("client config = %+v", sc)
	}
}
