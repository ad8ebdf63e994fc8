package board

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/sortboard/internal/domain"
)

func testTemplates() []Template {
	return []Template{
		{
			Key: "pick", Title: "Picking", Status: domain.StatusGood, IdleThreshold: 60,
			KPIs: []domain.KPI{
				{Label: "Picks per hour", Unit: "items/h"},
				{Label: "Picked today", Unit: "items"},
				{Label: "Open orders", Unit: "orders"},
			},
		},
		{
			Key: "returns", Title: "Returns", Status: domain.StatusGood, IdleThreshold: 60,
			KPIs: []domain.KPI{
				{Label: "Returns per hour", Unit: "items/h"},
				{Label: "Returns today", Unit: "items"},
			},
		},
	}
}

func newTestStore(t *testing.T, cfg Config, at time.Time) *Store {
	t.Helper()
	s := NewStore(cfg, testTemplates(), zap.NewNop(), nil)
	s.nowFn = func() time.Time { return at }
	return s
}

func TestRecordEventCreatesOperator(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, DefaultConfig(), now)

	if err := s.RecordEvent("pick", "alice", 4, "picking", "Mono flow despatch", now); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	snap, ok := s.Snapshot("pick")
	if !ok {
		t.Fatal("expected pick dashboard")
	}
	if len(snap.People) != 1 {
		t.Fatalf("expected 1 operator, got %d", len(snap.People))
	}
	op := snap.People[0]
	if op.Name != "alice" || op.Jobs != 4 || op.IdleSeconds != 0 {
		t.Fatalf("unexpected operator state: %+v", op)
	}
	if op.LastSeen == nil || !op.LastSeen.Equal(now) {
		t.Fatalf("expected last_seen %v, got %v", now, op.LastSeen)
	}
	if op.Category != "picking" || op.Comment != "Mono flow despatch" {
		t.Fatalf("category/comment not recorded: %+v", op)
	}
}

func TestRecordEventUnknownDashboard(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, DefaultConfig(), now)

	before := len(s.Keys())
	err := s.RecordEvent("doesnotexist", "alice", 1, "", "", now)
	if !errors.Is(err, ErrDashboardNotFound) {
		t.Fatalf("expected ErrDashboardNotFound, got %v", err)
	}
	if len(s.Keys()) != before {
		t.Fatalf("store key set changed on not-found: %v", s.Keys())
	}
}

func TestRecordEventWindowedSpeedAndKPIs(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, DefaultConfig(), base.Add(10*time.Minute))

	// Quantities 5, 3, 2 inside a 10-minute span of a 60-minute window.
	for i, qty := range []int{5, 3, 2} {
		at := base.Add(time.Duration(i*5) * time.Minute)
		if err := s.RecordEvent("pick", "alice", qty, "picking", "", at); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}

	snap, _ := s.Snapshot("pick")
	op := snap.People[0]
	if op.Jobs != 10 {
		t.Fatalf("expected jobs 10, got %d", op.Jobs)
	}
	// 10 units in a 60-minute window is a true rate of 10/h.
	if op.Speed != 10 {
		t.Fatalf("expected windowed speed 10, got %d", op.Speed)
	}
	if got := snap.KPIs[domain.KPISlotRate].Value; got != 10 {
		t.Fatalf("expected rate KPI 10, got %v", got)
	}
	if got := snap.KPIs[domain.KPISlotTotal].Value; got != 10 {
		t.Fatalf("expected total KPI 10, got %v", got)
	}
	// Third template slot untouched by the aggregator.
	if got := snap.KPIs[2].Value; got != 0 {
		t.Fatalf("expected untouched KPI slot, got %v", got)
	}
}

func TestRecordEventNegativeQuantityNeverDecrements(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, DefaultConfig(), now)

	s.RecordEvent("pick", "alice", 5, "", "", now)
	s.RecordEvent("pick", "alice", -3, "", "", now.Add(time.Second))

	snap, _ := s.Snapshot("pick")
	if snap.People[0].Jobs != 5 {
		t.Fatalf("expected jobs to stay at 5, got %d", snap.People[0].Jobs)
	}
	if got := snap.KPIs[domain.KPISlotTotal].Value; got != 5 {
		t.Fatalf("expected total KPI to stay at 5, got %v", got)
	}
}

func TestRecordEventRefreshesOtherOperatorsIdle(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, DefaultConfig(), base)

	s.RecordEvent("pick", "alice", 1, "", "", base)

	// Time moves on; bob's event refreshes alice's idle from last_seen.
	later := base.Add(90 * time.Second)
	s.nowFn = func() time.Time { return later }
	s.RecordEvent("pick", "bob", 1, "", "", later)

	snap, _ := s.Snapshot("pick")
	byName := map[string]domain.Operator{}
	for _, p := range snap.People {
		byName[p.Name] = p
	}
	if byName["bob"].IdleSeconds != 0 {
		t.Fatalf("expected bob idle 0, got %d", byName["bob"].IdleSeconds)
	}
	if byName["alice"].IdleSeconds != 90 {
		t.Fatalf("expected alice idle 90, got %d", byName["alice"].IdleSeconds)
	}
	// bob is most recent, so he leads the list.
	if snap.People[0].Name != "bob" {
		t.Fatalf("expected bob first, got %s", snap.People[0].Name)
	}
}

func TestRecordEventTruncatesToMaxPeople(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.MaxPeople = 5
	s := newTestStore(t, cfg, base.Add(10*time.Minute))

	for i := 0; i < 8; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		name := fmt.Sprintf("op-%d", i)
		if err := s.RecordEvent("pick", name, 1, "", "", at); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}

	snap, _ := s.Snapshot("pick")
	if len(snap.People) != 5 {
		t.Fatalf("expected 5 operators, got %d", len(snap.People))
	}
	// Most recently active first, oldest displaced.
	if snap.People[0].Name != "op-7" {
		t.Fatalf("expected op-7 first, got %s", snap.People[0].Name)
	}
	for _, p := range snap.People {
		if p.Name == "op-0" || p.Name == "op-1" || p.Name == "op-2" {
			t.Fatalf("expected oldest operators displaced, found %s", p.Name)
		}
	}
}

func TestRecordEventConcurrentDistinctOperators(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.MaxPeople = 50
	s := newTestStore(t, cfg, now)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("op-%d", i)
			if err := s.RecordEvent("pick", name, 1, "", "", now); err != nil {
				t.Errorf("record %s: %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	snap, _ := s.Snapshot("pick")
	if len(snap.People) != n {
		t.Fatalf("expected %d operators, got %d", n, len(snap.People))
	}
	seen := map[string]bool{}
	for _, p := range snap.People {
		if seen[p.Name] {
			t.Fatalf("duplicate operator %s", p.Name)
		}
		seen[p.Name] = true
	}
	if got := snap.KPIs[domain.KPISlotTotal].Value; got != n {
		t.Fatalf("expected total KPI %d with no lost updates, got %v", n, got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, DefaultConfig(), now)
	s.RecordEvent("pick", "alice", 1, "", "", now)

	snap, _ := s.Snapshot("pick")
	snap.People[0].Jobs = 999
	snap.KPIs[0].Value = 999

	again, _ := s.Snapshot("pick")
	if again.People[0].Jobs == 999 || again.KPIs[0].Value == 999 {
		t.Fatal("snapshot mutation leaked into the store")
	}
}

func TestSetHistoryText(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := newTestStore(t, DefaultConfig(), now)

	if err := s.SetHistoryText("pick", "hourly avg 74%"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	snap, _ := s.Snapshot("pick")
	if snap.HistoryText != "hourly avg 74%" {
		t.Fatalf("history text not applied: %q", snap.HistoryText)
	}

	if err := s.SetHistoryText("nope", "x"); !errors.Is(err, ErrDashboardNotFound) {
		t.Fatalf("expected ErrDashboardNotFound, got %v", err)
	}
}
