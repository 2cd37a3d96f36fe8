package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidateForServerMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRequiresAPIKeyWhenScanning(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "scan"
	cfg.OddsAPI.APIKey = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error for missing api_key")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error %q does not mention api_key", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Engine.DefaultBankroll = -5
	cfg.Pipeline.PollInterval = duration{0}
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"mode", "default_bankroll", "poll_interval", "redis"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "once"

[odds_api]
api_key = "from-file"
sports = ["nba", "icehockey_nhl"]

[engine]
default_bankroll = 2500.0

[pipeline]
poll_interval = "90s"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SUREBET_ODDS_API_KEY", "from-env")
	t.Setenv("SUREBET_ENGINE_MIN_PROFIT_PERCENT", "0.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode != "once" {
		t.Errorf("Mode = %q, want once", cfg.Mode)
	}
	if cfg.OddsAPI.APIKey != "from-env" {
		t.Errorf("APIKey = %q, env override should win", cfg.OddsAPI.APIKey)
	}
	if cfg.Engine.DefaultBankroll != 2500 {
		t.Errorf("DefaultBankroll = %v, want 2500", cfg.Engine.DefaultBankroll)
	}
	if cfg.Engine.MinProfitPercent != 0.5 {
		t.Errorf("MinProfitPercent = %v, want 0.5", cfg.Engine.MinProfitPercent)
	}
	if cfg.Pipeline.PollInterval.Duration != 90*time.Second {
		t.Errorf("PollInterval = %v, want 90s", cfg.Pipeline.PollInterval.Duration)
	}
	// Untouched sections keep defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want default", cfg.Redis.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after Load = %v", err)
	}
}

func TestResolveSportAlias(t *testing.T) {
	cfg := Defaults()

	if got := cfg.OddsAPI.ResolveSport("nba"); got != "basketball_nba" {
		t.Errorf("ResolveSport(nba) = %q", got)
	}
	if got := cfg.OddsAPI.ResolveSport("basketball_nba"); got != "basketball_nba" {
		t.Errorf("ResolveSport(basketball_nba) = %q", got)
	}
	if got := cfg.OddsAPI.ResolveSport("tennis_atp"); got != "tennis_atp" {
		t.Errorf("ResolveSport passthrough = %q", got)
	}
}
