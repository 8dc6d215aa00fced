package domain

import "time"

// Policy holds the operational thresholds used to infer what a row's status
// most likely is right now when providers have gone quiet.
type Policy struct {
	// TaxiLandedAfter: an in-progress row with no ETA whose reference time is
	// older than this is shown as landed instead of taxi.
	TaxiLandedAfter time.Duration
	// EnrouteLandedAfter: an airborne row whose ETA is older than this is
	// shown as landed.
	EnrouteLandedAfter time.Duration
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		TaxiLandedAfter:    90 * time.Minute,
		EnrouteLandedAfter: 60 * time.Minute,
	}
}

// DisplayStatus derives the status shown to operators at instant now. It
// never changes the row's reported status.
func DisplayStatus(r FlightRow, now time.Time, p Policy) Status {
	now = now.UTC()
	switch {
	case r.ATA != nil:
		return StatusLanded
	case r.DivertedTo != "" && r.DivertedTo != r.ArrCode:
		return StatusDiverted
	}

	ref := r.BestTime()
	switch r.Status {
	case StatusScheduled:
		if ref != nil && ref.Before(startOfDay(now)) {
			return StatusUnknown
		}
	case StatusActive, StatusEnRoute, StatusDelayed, StatusTaxi:
		if r.ETA == nil {
			if ref != nil && now.Sub(*ref) > p.TaxiLandedAfter {
				return StatusLanded
			}
			return StatusTaxi
		}
		if (r.Status == StatusActive || r.Status == StatusEnRoute) && now.Sub(*r.ETA) > p.EnrouteLandedAfter {
			return StatusLanded
		}
	}
	return r.Status
}
