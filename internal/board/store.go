// Package board holds the in-memory metrics core: the dashboard store,
// the per-operator rolling windows, the KPI accumulator and the decay
// ticker. All state is volatile and lives for the process lifetime.
package board

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/sortboard/internal/domain"
)

// ErrDashboardNotFound marks events routed to a key outside the
// provisioned set. This is a normal operational occurrence (misrouted
// upstream events), never fatal.
var ErrDashboardNotFound = errors.New("dashboard not found")

// Config carries the tuning knobs of the store and its ticker.
type Config struct {
	TickInterval     time.Duration // one decay pass per interval
	DecayRate        float64       // speed multiplier per idle second
	IdleTickFallback int           // idle seconds added when last_seen is unset
	MaxPeople        int           // keep only the N most-recent operators
	RemovalThreshold time.Duration // evict operators idle at least this long
	RollingWindow    time.Duration // window of the speed / rate computation
	WindowCapacity   int           // hard cap on window entries
}

// DefaultConfig mirrors the production tuning.
func DefaultConfig() Config {
	return Config{
		TickInterval:     time.Second,
		DecayRate:        0.99,
		IdleTickFallback: 1,
		MaxPeople:        5,
		RemovalThreshold: 30 * time.Minute,
		RollingWindow:    time.Hour,
		WindowCapacity:   6000,
	}
}

// Template provisions one dashboard at startup: empty operator list,
// zeroed KPI slots.
type Template struct {
	Key           string
	Title         string
	Status        domain.Status
	IdleThreshold int
	KPIs          []domain.KPI
}

// operator is the mutable record behind one people row.
type operator struct {
	name        string
	speed       int
	idleSeconds int
	lastSeen    *time.Time
	jobs        int
	category    string
	comment     string
	jobTimes    *window
}

// dashboard is the mutable store-side state of one provisioned board.
type dashboard struct {
	title         string
	status        domain.Status
	kpis          []domain.KPI
	historyText   string
	people        []*operator
	idleThreshold int
	kpi           *kpiState
}

// Store maps dashboard keys to their live state. A single mutex guards
// the whole mutation surface: RecordEvent, the ticker pass and snapshot
// copies all serialize on it, so readers never observe a torn operator
// list or half-applied KPI update.
type Store struct {
	mu     sync.Mutex
	boards map[string]*dashboard

	cfg     Config
	logger  *zap.Logger
	metrics *Metrics

	// injectable clock for deterministic tests
	nowFn func() time.Time
}

// NewStore provisions every dashboard once. The key set is closed: no
// dynamic creation afterwards.
func NewStore(cfg Config, templates []Template, logger *zap.Logger, metrics *Metrics) *Store {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	s := &Store{
		boards:  make(map[string]*dashboard, len(templates)),
		cfg:     cfg,
		logger:  logger.Named("board"),
		metrics: metrics,
		nowFn:   time.Now,
	}
	for _, t := range templates {
		status := t.Status
		if status == "" {
			status = domain.StatusGood
		}
		s.boards[t.Key] = &dashboard{
			title:         t.Title,
			status:        status,
			kpis:          append([]domain.KPI(nil), t.KPIs...),
			idleThreshold: t.IdleThreshold,
			kpi:           newKPIState(cfg.WindowCapacity),
		}
	}
	return s
}

// Keys lists the provisioned dashboard keys in stable order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.boards))
	for k := range s.boards {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordEvent is the canonical mutation: it attributes qty work units to
// one operator of one dashboard at eventTime and refreshes the board's
// KPI pair. Unknown keys return ErrDashboardNotFound without mutation.
func (s *Store) RecordEvent(key, name string, qty int, category, comment string, eventTime time.Time) error {
	if qty < 0 {
		// Negative quantities must never decrement totals.
		qty = 0
	}
	if eventTime.IsZero() {
		eventTime = s.nowFn()
	}
	eventTime = eventTime.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.boards[key]
	if !ok {
		s.metrics.RejectedTotal.WithLabelValues("unknown_dashboard").Inc()
		s.logger.Warn("event for unknown dashboard",
			zap.String("dashboard", key),
			zap.String("operator", name))
		return fmt.Errorf("%w: %q", ErrDashboardNotFound, key)
	}

	started := time.Now()
	defer func() {
		s.metrics.RecordDuration.Observe(time.Since(started).Seconds())
	}()

	op := d.lookup(name)
	if op == nil {
		op = &operator{name: name, jobTimes: newWindow(s.cfg.WindowCapacity)}
		// No eviction here: capacity is enforced by the sort+truncate
		// below and by the ticker.
		d.people = append(d.people, op)
	}

	now := s.nowFn().UTC()

	op.jobTimes.add(eventTime, qty)
	op.jobTimes.prune(eventTime.Add(-s.cfg.RollingWindow))
	op.speed = int(math.Round(float64(op.jobTimes.total()) * (3600.0 / s.cfg.RollingWindow.Seconds())))
	op.jobs += qty
	seen := eventTime
	op.lastSeen = &seen
	op.idleSeconds = 0
	op.category = category
	op.comment = comment

	// Best-effort idle refresh for everyone else, independent of the ticker.
	for _, p := range d.people {
		if p == op || p.lastSeen == nil {
			continue
		}
		idle := int(now.Sub(*p.lastSeen).Seconds())
		if idle < 0 {
			idle = 0
		}
		p.idleSeconds = idle
	}

	d.sortPeople(now)
	d.truncatePeople(s.cfg.MaxPeople)

	rate, total := d.kpi.record(eventTime, qty, s.cfg.RollingWindow)
	d.applyKPIs(rate, total)

	s.metrics.EventsTotal.WithLabelValues(key).Inc()
	s.metrics.ActiveOperators.WithLabelValues(key).Set(float64(len(d.people)))
	return nil
}

// Snapshot returns a deep copy of one dashboard for serving. Copying
// under the lock trades a short critical section for reads that are
// always internally consistent.
func (s *Store) Snapshot(key string) (domain.Dashboard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.boards[key]
	if !ok {
		return domain.Dashboard{}, false
	}

	out := domain.Dashboard{
		Title:         d.title,
		Status:        d.status,
		KPIs:          append([]domain.KPI(nil), d.kpis...),
		HistoryText:   d.historyText,
		People:        make([]domain.Operator, 0, len(d.people)),
		IdleThreshold: d.idleThreshold,
	}
	for _, p := range d.people {
		row := domain.Operator{
			Name:        p.name,
			Speed:       p.speed,
			IdleSeconds: p.idleSeconds,
			Jobs:        p.jobs,
			Category:    p.category,
			Comment:     p.comment,
		}
		if p.lastSeen != nil {
			seen := *p.lastSeen
			row.LastSeen = &seen
		}
		out.People = append(out.People, row)
	}
	return out, true
}

// SetHistoryText replaces the free-text history line of a dashboard.
func (s *Store) SetHistoryText(key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.boards[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrDashboardNotFound, key)
	}
	d.historyText = text
	return nil
}

// Tick runs one decay/eviction pass over every dashboard. Called by the
// Ticker; exported so tests can drive time explicitly.
func (s *Store) Tick() {
	started := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn().UTC()
	for key, d := range s.boards {
		s.tickDashboard(key, d, now)
	}
	s.metrics.TickDuration.Observe(time.Since(started).Seconds())
}

// tickDashboard ages, decays and prunes one board. A panic on a
// malformed record is contained here so the rest of the pass continues.
func (s *Store) tickDashboard(key string, d *dashboard, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick pass failed, skipping dashboard",
				zap.String("dashboard", key),
				zap.Any("panic", r))
		}
	}()

	for _, p := range d.people {
		if p == nil {
			continue
		}
		if p.lastSeen != nil {
			idle := int(now.Sub(*p.lastSeen).Seconds())
			if idle < 0 {
				idle = 0
			}
			p.idleSeconds = idle
		} else {
			p.idleSeconds += s.cfg.IdleTickFallback
		}

		if p.idleSeconds > 0 && p.speed > 0 {
			decayed := int(float64(p.speed) * s.cfg.DecayRate)
			if decayed < 0 {
				decayed = 0
			}
			p.speed = decayed
		}
	}

	threshold := int(s.cfg.RemovalThreshold.Seconds())
	kept := d.people[:0]
	for _, p := range d.people {
		if p == nil || p.idleSeconds >= threshold {
			continue
		}
		kept = append(kept, p)
	}
	d.people = kept

	d.sortPeople(now)
	d.truncatePeople(s.cfg.MaxPeople)

	s.metrics.ActiveOperators.WithLabelValues(key).Set(float64(len(d.people)))
}

func (d *dashboard) lookup(name string) *operator {
	for _, p := range d.people {
		if p != nil && p.name == name {
			return p
		}
	}
	return nil
}

// sortPeople orders by recency, most recent first. Operators without a
// last_seen sort as "now", i.e. to the front.
func (d *dashboard) sortPeople(now time.Time) {
	seen := func(p *operator) time.Time {
		if p == nil || p.lastSeen == nil {
			return now
		}
		return *p.lastSeen
	}
	sort.SliceStable(d.people, func(i, j int) bool {
		return seen(d.people[i]).After(seen(d.people[j]))
	})
}

func (d *dashboard) truncatePeople(max int) {
	if max > 0 && len(d.people) > max {
		d.people = d.people[:max]
	}
}
