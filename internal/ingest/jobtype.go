package ingest

import "strings"

// commentRoutes maps the WMS task comment verbatim to a dashboard key.
// Maintained hand in hand with the floor planning team.
var commentRoutes = map[string]string{
	"Truck moves":                       "fma",
	"AMR Inbound":                       "inboundandbulk",
	"Receipt":                           "inboundandbulk",
	"Receipt full pallets":              "inboundandbulk",
	"New item registration":             "inboundandbulk",
	"Preparation despatch packaging":    "monopicking",
	"B2B manual & label tasks":          "monopicking",
	"Mono flow despatch":                "monopicking",
	"Advent Despatch Packing":           "monopicking",
	"GEEK → PACK (packing Geek orders)": "monopicking",
	"Perform actions on stock":          "errorlanes",
	"Put Away Returns":                  "returns",
	"Return MOVE":                       "returns",
	"Return receipts":                   "returns",

	"Picking tasks: single/multi SKU, retail, B2B and BTQ":             "monopicking",
	"B2B try‑out and BTQ picking tasks":                                "monopicking",
	"Multi‑SKU & marketplace try‑out tasks":                            "monopicking",
	"Replenishment (decons) and deco picking tasks":                    "monopicking",
	"Replenishment tasks (Geek+, AMR REA/EPT) and mono collection":     "monopicking",
	"Replenishment tasks (e.g., Repl REA/OPT/EPT) and mono collection": "monopicking",
}

// DashboardForComment routes a task comment to a dashboard key.
// Stock-move comments carry a "from > to" arrow and are classified by
// their destination zone; everything else goes through the verbatim
// table. Unroutable comments return "unknown", which the store rejects
// as a not-found key.
func DashboardForComment(comment string) string {
	if strings.Contains(comment, ">") {
		switch {
		case strings.Contains(comment, "Inventory > A zone"),
			strings.Contains(comment, "Inventory > B zone"):
			return "fma"
		case strings.Contains(comment, "Inventory > Bulk"):
			return "inboundandbulk"
		case strings.Contains(comment, "Quality > Available stock"),
			strings.Contains(comment, "Inventory > Audit"),
			strings.Contains(comment, "Inventory > C zone"):
			return "errorlanes"
		default:
			return "unknown"
		}
	}
	if key, ok := commentRoutes[comment]; ok {
		return key
	}
	return "unknown"
}
