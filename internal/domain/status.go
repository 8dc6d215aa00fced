package domain

import "strings"

// Status is the canonical lifecycle state of a flight leg.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusDelayed   Status = "delayed"
	StatusTaxi      Status = "taxi"
	StatusActive    Status = "active"
	StatusEnRoute   Status = "en-route"
	StatusIncident  Status = "incident"
	StatusDiverted  Status = "diverted"
	StatusLanded    Status = "landed"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

// statusVocabulary maps lowercase vendor text to canonical statuses.
var statusVocabulary = map[string]Status{
	"active":     StatusActive,
	"airborne":   StatusEnRoute,
	"enroute":    StatusEnRoute,
	"en-route":   StatusEnRoute,
	"en route":   StatusEnRoute,
	"landed":     StatusLanded,
	"arrived":    StatusLanded,
	"arrival":    StatusLanded,
	"diverted":   StatusDiverted,
	"redirected": StatusDiverted,
	"alternate":  StatusDiverted,
	"rerouted":   StatusDiverted,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"cncl":       StatusCancelled,
	"cancld":     StatusCancelled,
	"delayed":    StatusDelayed,
	"delay":      StatusDelayed,
	"taxi":       StatusTaxi,
	"taxiing":    StatusTaxi,
	"scheduled":  StatusScheduled,
	"sched":      StatusScheduled,
	"programado": StatusScheduled,
	"incident":   StatusIncident,
	"accident":   StatusIncident,
	"irregular":  StatusIncident,
	"unknown":    StatusUnknown,
}

// ParseStatus maps any vendor status text onto the canonical enum. Empty
// input means scheduled; text outside the known vocabulary means unknown.
func ParseStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return StatusScheduled
	}
	if st, ok := statusVocabulary[s]; ok {
		return st
	}
	return StatusUnknown
}

// Strength ranks how much a status says about the leg's progress. Higher
// values win during merge.
func (s Status) Strength() int {
	switch s {
	case StatusLanded:
		return 6
	case StatusDiverted:
		return 5
	case StatusIncident:
		return 4
	case StatusActive, StatusEnRoute:
		return 3
	case StatusTaxi:
		return 2
	case StatusDelayed, StatusScheduled:
		return 1
	default:
		return 0
	}
}

// Terminal reports whether the leg can no longer progress.
func (s Status) Terminal() bool {
	switch s {
	case StatusLanded, StatusCancelled, StatusDiverted, StatusIncident:
		return true
	}
	return false
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusDelayed, StatusTaxi, StatusActive, StatusEnRoute,
		StatusIncident, StatusDiverted, StatusLanded, StatusCancelled, StatusUnknown:
		return true
	}
	return false
}

// ApplyTaxiRule downgrades an in-progress status to taxi when the row has no
// estimated arrival. Applying it twice changes nothing.
func ApplyTaxiRule(r *FlightRow) {
	switch r.Status {
	case StatusActive, StatusEnRoute, StatusDelayed:
		if r.ETA == nil {
			r.Status = StatusTaxi
		}
	}
}
