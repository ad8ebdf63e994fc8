package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if cfg.Server.Port != 5001 {
		t.Fatalf("expected default port 5001, got %d", cfg.Server.Port)
	}
	if cfg.Board.TickInterval != time.Second {
		t.Fatalf("expected 1s tick interval, got %v", cfg.Board.TickInterval)
	}
	if cfg.Board.DecayRate != 0.99 {
		t.Fatalf("expected decay rate 0.99, got %v", cfg.Board.DecayRate)
	}
	if cfg.Board.RemovalThreshold != 30*time.Minute {
		t.Fatalf("expected 30m removal threshold, got %v", cfg.Board.RemovalThreshold)
	}
	if cfg.Redis.Channel != RedisChanJobEvents {
		t.Fatalf("unexpected default channel %q", cfg.Redis.Channel)
	}
	if len(cfg.Dashboards) == 0 {
		t.Fatal("expected built-in dashboard provisioning")
	}
}

func TestDefaultDashboardsCarryRateAndTotalSlots(t *testing.T) {
	keys := map[string]bool{}
	for _, d := range DefaultDashboards() {
		if keys[d.Key] {
			t.Fatalf("duplicate dashboard key %q", d.Key)
		}
		keys[d.Key] = true

		if len(d.KPIs) < 2 {
			t.Fatalf("dashboard %q needs at least the rate/total KPI pair", d.Key)
		}
	}
	for _, want := range []string{"default", "geekinbound", "fma", "monopicking", "returns"} {
		if !keys[want] {
			t.Fatalf("missing provisioned dashboard %q", want)
		}
	}
}
