package board

import (
	"math"
	"time"

	"github.com/xela07ax/sortboard/internal/domain"
)

// kpiState is the per-dashboard accumulator behind the rate/total KPI
// pair. It persists across events and resets itself at day rollover.
// It is internal plumbing and never serialized.
type kpiState struct {
	day         string // UTC calendar date of the running total
	total       int
	windowStart time.Time
	recent      *window
}

func newKPIState(capacity int) *kpiState {
	return &kpiState{recent: newWindow(capacity)}
}

// record folds one event into the accumulator and returns the rolling
// per-hour rate plus today's running total.
func (k *kpiState) record(at time.Time, qty int, rollingWindow time.Duration) (rate float64, total int) {
	day := at.UTC().Format("2006-01-02")
	if day != k.day {
		k.day = day
		k.total = 0
		k.windowStart = at
		k.recent.reset()
	}

	k.total += qty
	k.recent.add(at, qty)
	k.recent.prune(at.Add(-rollingWindow))

	rate = float64(k.recent.total()) * (3600.0 / rollingWindow.Seconds())
	return rate, k.total
}

// applyKPIs writes the rate/total pair into the dashboard's fixed KPI
// slots, growing the slice when a template shipped with fewer slots.
func (d *dashboard) applyKPIs(rate float64, total int) {
	fallback := []domain.KPI{
		{Label: "Per hour", Unit: "jobs/h"},
		{Label: "Today", Unit: "jobs"},
	}
	for len(d.kpis) <= domain.KPISlotTotal {
		d.kpis = append(d.kpis, fallback[len(d.kpis)])
	}
	d.kpis[domain.KPISlotRate].Value = math.Round(rate)
	d.kpis[domain.KPISlotTotal].Value = float64(total)
}
