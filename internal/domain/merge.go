package domain

import (
	"slices"
	"time"
)

// Score ranks how complete and advanced a row is: status strength, plus 4
// when the registration is known, plus 2 when the scheduled arrival is known.
func Score(r FlightRow) int {
	s := r.Status.Strength()
	if r.Registration != "" {
		s += 4
	}
	if r.STA != nil {
		s += 2
	}
	return s
}

// Resolve merges a group of rows describing the same leg into one new row.
// The highest-scoring row wins (earliest ETA breaks ties, rows with an ETA
// ahead of rows without, then input order); its empty fields are filled from
// the best loser that has them. The status is the strongest any member
// reports, so a landed report is never lost to a better-documented stale
// one. Codeshares are unioned, and any diversion reported by a member
// overrides the status.
func Resolve(group []FlightRow) FlightRow {
	if len(group) == 0 {
		return FlightRow{}
	}

	ranked := slices.Clone(group)
	slices.SortStableFunc(ranked, compareForMerge)

	out := ranked[0].Clone()
	for _, loser := range ranked[1:] {
		backfill(&out, loser)
		if loser.Status.Strength() > out.Status.Strength() {
			out.Status = loser.Status
		}
	}

	var codes []string
	for _, r := range ranked {
		codes = append(codes, r.Codeshares...)
	}
	out.Codeshares = cleanCodeshares(codes, out.PrimaryCode())

	for _, r := range ranked {
		if r.DivertedTo != "" && r.DivertedTo != out.ArrCode {
			out.DivertedTo = r.DivertedTo
			out.Status = StatusDiverted
			break
		}
	}
	return out
}

func compareForMerge(a, b FlightRow) int {
	if sa, sb := Score(a), Score(b); sa != sb {
		return sb - sa
	}
	return compareTimes(a.ETA, b.ETA, true)
}

// compareTimes orders times with nil always last.
func compareTimes(a, b *time.Time, ascending bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := a.Compare(*b)
	if !ascending {
		c = -c
	}
	return c
}

// backfill copies fields that are empty on dst from src.
func backfill(dst *FlightRow, src FlightRow) {
	fillTime(&dst.STD, src.STD)
	fillTime(&dst.ETD, src.ETD)
	fillTime(&dst.ATD, src.ATD)
	fillTime(&dst.STA, src.STA)
	fillTime(&dst.ETA, src.ETA)
	fillTime(&dst.ATA, src.ATA)
	if dst.DelayMin == 0 {
		dst.DelayMin = src.DelayMin
	}
	if dst.EETMin == 0 {
		dst.EETMin = src.EETMin
	}
	fillString(&dst.Registration, src.Registration)
	fillString(&dst.AcType, src.AcType)
	fillString(&dst.AirlineICAO, src.AirlineICAO)
	fillString(&dst.AirlineName, src.AirlineName)
	fillString(&dst.FlightNumber, src.FlightNumber)
	fillString(&dst.FlightIATA, src.FlightIATA)
	fillString(&dst.FlightICAO, src.FlightICAO)
	fillString(&dst.Callsign, src.Callsign)
	fillString(&dst.DepCode, src.DepCode)
	fillString(&dst.ArrCode, src.ArrCode)
}

func fillTime(dst **time.Time, src *time.Time) {
	if *dst == nil && src != nil {
		*dst = cloneTime(src)
	}
}

func fillString(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}
