package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"money/internal/config"
	"money/internal/controller"
	"money/internal/core"
	"money/internal/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            "8081",
		DataBackend:     "sqlite",
		SQLiteDBPath:    filepath.Join(t.TempDir(), "money.db"),
		LedgerKey:       "moneyManagerData",
		ThemeKey:        "theme",
		CurrencySymbol:  "€",
		TimeZone:        "UTC",
		NotificationTTL: 3 * time.Second,
		RenderCacheSize: 8,
		RenderCacheTTL:  time.Minute,
		RateLimitPerMin: 60,
		EventsBackend:   "none",
		LogLevel:        "info",
	}
}

func TestBootstrap_PersistsAcrossRuns(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	app, err := Bootstrap(ctx, cfg, log.Discard())
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if app.Started.Message != "No saved data found" {
		t.Errorf("first start notification = %q", app.Started.Message)
	}
	if app.Controller.Currency() != "€" {
		t.Errorf("Currency() = %q, want €", app.Controller.Currency())
	}

	app.Controller.OpenModal(core.Income)
	n := app.Controller.Submit(ctx, controller.Form{Amount: "25", Description: "Gift"})
	if n.Level != controller.LevelSuccess {
		t.Fatalf("Submit() = %+v", n)
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	again, err := Bootstrap(ctx, cfg, log.Discard())
	if err != nil {
		t.Fatalf("second Bootstrap() error = %v", err)
	}
	t.Cleanup(func() { _ = again.Close(ctx) })

	if again.Started.Message != "Data loaded successfully" {
		t.Errorf("second start notification = %q", again.Started.Message)
	}
	if got := again.Controller.Stats().Balance.String(); got != "25.00" {
		t.Errorf("balance after reload = %s, want 25.00", got)
	}
}

func TestBootstrap_InvalidTimeZone(t *testing.T) {
	cfg := testConfig(t)
	cfg.TimeZone = "Mars/Olympus"

	if _, err := Bootstrap(context.Background(), cfg, nil); err == nil {
		t.Error("Bootstrap() with bad time zone should fail")
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "9090")
	t.Setenv("TIME_ZONE", "UTC")

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig() error = %v", err)
	}
	if cfg.Port != "9090" || cfg.DataBackend != "memory" {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("DATA_BACKEND", "sheets")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Error("LoadAndValidateConfig() with unknown backend should fail")
	}
}

func TestSetupTerminalLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupTerminalLogger(&buf, "debug")
	logger.Debug("hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "hello") || !strings.Contains(out, "money") {
		t.Errorf("terminal log output = %q", out)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MONEY_TEST_VALUE=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("MONEY_TEST_VALUE", "")
	os.Unsetenv("MONEY_TEST_VALUE")

	LoadEnvFile()
	if got := os.Getenv("MONEY_TEST_VALUE"); got != "from-dotenv" {
		t.Errorf("MONEY_TEST_VALUE = %q, want from-dotenv", got)
	}
}
