package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
environment: test
server:
  port: 9090
ingest:
  source: websocket
  feed:
    url: wss://feed.example.com/ws
routes:
  LIQUIDATION_THRESHOLD_BREACH:
    chains: [ethereum, arbitrum]
    strategies: [liquidation, flashloan]
    min_profit: 0.05
    urgency: Immediate
venues:
  ethereum:
    chain_modifier: 1.0
  arbitrum:
    chain_modifier: 0.7
strategies:
  liquidation:
    profit_rate: 0.08
router:
  exec_timeout: 2s
`

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("unexpected port %d", cfg.Server.Port)
	}
	r, ok := cfg.Routes["LIQUIDATION_THRESHOLD_BREACH"]
	if !ok {
		t.Fatalf("route missing")
	}
	if len(r.Chains) != 2 || r.Chains[0] != "ethereum" {
		t.Fatalf("unexpected chains %v", r.Chains)
	}
	if r.MinProfit != 0.05 || r.Urgency != "Immediate" {
		t.Fatalf("unexpected route %+v", r)
	}
	if cfg.Router.ExecTimeout != 2*time.Second {
		t.Fatalf("unexpected exec timeout %v", cfg.Router.ExecTimeout)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("unexpected default port %d", cfg.Server.Port)
	}
	if cfg.Estimator.DefaultChainModifier != 0.5 || cfg.Estimator.DefaultStrategyRate != 0.01 {
		t.Fatalf("unexpected estimator defaults %+v", cfg.Estimator)
	}
	if cfg.Feedback.TopK != 3 || cfg.Feedback.RecentDepth != 50 {
		t.Fatalf("unexpected feedback defaults %+v", cfg.Feedback)
	}
	if cfg.Router.QueueSize != 1024 || cfg.Router.MaxInFlight != 8 {
		t.Fatalf("unexpected router defaults %+v", cfg.Router)
	}
}

func TestValidateRejectsMalformedRoutes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no chains", `
environment: test
routes:
  LARGE_SWAP:
    chains: []
    strategies: [arb]
`},
		{"no strategies", `
environment: test
routes:
  LARGE_SWAP:
    chains: [ethereum]
    strategies: []
`},
		{"bad urgency", `
environment: test
routes:
  LARGE_SWAP:
    chains: [ethereum]
    strategies: [arb]
    urgency: Yesterday
`},
		{"negative min profit", `
environment: test
routes:
  LARGE_SWAP:
    chains: [ethereum]
    strategies: [arb]
    min_profit: -1
`},
		{"bad chain modifier", `
environment: test
venues:
  ethereum:
    chain_modifier: 1.5
`},
		{"http strategy without url", `
environment: test
strategies:
  liquidation:
    executor: http
`},
		{"weight out of range", `
environment: test
scorer:
  weights:
    LARGE_SWAP: 11
`},
		{"bad ingest source", `
environment: test
ingest:
  source: carrier-pigeon
`},
	}
	for _, c := range cases {
		if _, err := Load(writeConfig(t, c.body)); err == nil {
			t.Fatalf("%s: expected validation error", c.name)
		}
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7777")
	t.Setenv("LEDGER_STORE", "file")
	t.Setenv("LEDGER_FILE", "/tmp/ledger.json")

	cfg, err := LoadWithEnv(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Fatalf("env override ignored, port %d", cfg.Server.Port)
	}
	if cfg.Ledger.Store != "file" || cfg.Ledger.FilePath != "/tmp/ledger.json" {
		t.Fatalf("env override ignored, ledger %+v", cfg.Ledger)
	}
}
