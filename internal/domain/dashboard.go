package domain

import "time"

// Status is the traffic-light health state shown in the dashboard header.
type Status string

const (
	StatusGood Status = "good"
	StatusRisk Status = "risk"
	StatusBad  Status = "bad"
)

// KPI is a single displayed metric slot. Order inside Dashboard.KPIs is
// meaningful: the aggregator writes the rolling rate and the daily total
// into fixed positions.
type KPI struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// KPI slot positions maintained by the board aggregator for event-driven
// dashboards. Named here so nothing else hardcodes the array indexes.
const (
	KPISlotRate  = 0 // rolling "per hour" rate
	KPISlotTotal = 1 // cumulative "today" total
)

// Operator is one worker row on a dashboard. LastSeen is nil until the
// first activity event for that operator arrives.
type Operator struct {
	Name        string     `json:"name"`
	Speed       int        `json:"speed"`
	IdleSeconds int        `json:"idleSeconds"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	Jobs        int        `json:"jobs"`
	Category    string     `json:"category"`
	Comment     string     `json:"comment"`
}

// Dashboard is the public read contract served to the polling front-end.
// Internal aggregation state (rolling windows, daily accumulator) never
// appears here.
type Dashboard struct {
	Title         string     `json:"title"`
	Status        Status     `json:"status"`
	KPIs          []KPI      `json:"kpis"`
	HistoryText   string     `json:"historyText"`
	People        []Operator `json:"people"`
	IdleThreshold int        `json:"idleThreshold"`
}
