package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// IdentityKeys are the candidate keys under which a row can be matched to
// other reports of the same leg. Empty strings mean the key is unavailable.
type IdentityKeys struct {
	// Primary is code|time|dep. Never built from an empty code.
	Primary string
	// Registration is REG|tail|time.
	Registration string
	// TimeRoute is time|dep. Only consulted for rows that carry a
	// registration or are taxiing.
	TimeRoute string
	// Content is a hash of the whole row, used when nothing else exists.
	Content string
}

// KeysOf computes the identity keys of r.
func KeysOf(r FlightRow) IdentityKeys {
	var k IdentityKeys
	ts := keyTime(r.BestTime())
	dep := NormalizeCode(r.DepCode)

	if code := r.PrimaryCode(); code != "" {
		k.Primary = code + "|" + ts + "|" + dep
	}
	if reg := NormalizeCode(r.Registration); reg != "" {
		k.Registration = "REG|" + reg + "|" + ts
	}
	if ts != "" {
		k.TimeRoute = ts + "|" + dep
	}
	if k.Primary == "" && k.Registration == "" {
		k.Content = contentHash(r)
	}
	return k
}

// timeRouteEligible reports whether r may be matched on time and route alone.
func timeRouteEligible(r FlightRow) bool {
	return r.Registration != "" || r.Status == StatusTaxi
}

func keyTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func contentHash(r FlightRow) string {
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "H|" + hex.EncodeToString(sum[:16])
}

// groupArena holds groups of row positions in creation order plus
// key-to-group indices.
type groupArena struct {
	rows      []FlightRow
	groups    [][]int
	primary   map[string]int
	reg       map[string]int
	timeRoute map[string]int
	content   map[string]int
}

func newGroupArena(rows []FlightRow) *groupArena {
	n := len(rows)
	return &groupArena{
		rows:      rows,
		groups:    make([][]int, 0, n),
		primary:   make(map[string]int, n),
		reg:       make(map[string]int, n),
		timeRoute: make(map[string]int, n),
		content:   make(map[string]int),
	}
}

// match returns the group r belongs to, trying keys strongest first. The
// first index that knows a key decides; weaker keys are never consulted once
// a stronger one hits.
func (a *groupArena) match(r FlightRow, k IdentityKeys) (int, bool) {
	if g, ok := lookup(a.primary, k.Primary); ok {
		return g, true
	}
	if g, ok := lookup(a.reg, k.Registration); ok {
		return g, true
	}
	if timeRouteEligible(r) {
		if g, ok := lookup(a.timeRoute, k.TimeRoute); ok && !a.codeConflict(g, r.PrimaryCode()) {
			return g, true
		}
	}
	return lookup(a.content, k.Content)
}

// codeConflict reports whether group g already holds a row with a flight
// code other than code. Two different codes at the same time and origin are
// separate legs unless a stronger key ties them.
func (a *groupArena) codeConflict(g int, code string) bool {
	if code == "" {
		return false
	}
	for _, i := range a.groups[g] {
		if c := a.rows[i].PrimaryCode(); c != "" && c != code {
			return true
		}
	}
	return false
}

func lookup(idx map[string]int, key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	g, ok := idx[key]
	return g, ok
}

// register indexes every available key under group g without overwriting
// keys that already point elsewhere.
func (a *groupArena) register(g int, k IdentityKeys) {
	put := func(idx map[string]int, key string) {
		if key == "" {
			return
		}
		if _, ok := idx[key]; !ok {
			idx[key] = g
		}
	}
	put(a.primary, k.Primary)
	put(a.reg, k.Registration)
	put(a.timeRoute, k.TimeRoute)
	put(a.content, k.Content)
}

func (a *groupArena) add(i int) {
	k := KeysOf(a.rows[i])
	g, ok := a.match(a.rows[i], k)
	if !ok {
		g = len(a.groups)
		a.groups = append(a.groups, nil)
	}
	a.groups[g] = append(a.groups[g], i)
	a.register(g, k)
}

func (a *groupArena) result() [][]FlightRow {
	out := make([][]FlightRow, 0, len(a.groups))
	for _, members := range a.groups {
		rows := make([]FlightRow, len(members))
		for j, i := range members {
			rows[j] = a.rows[i]
		}
		out = append(out, rows)
	}
	return out
}

// GroupByIdentity partitions rows into groups that describe the same leg.
// Keys are tried in priority order: primary, registration, then (for rows
// with a registration or taxi status) time+route, and the first hit decides.
// Time+route never joins rows carrying different flight codes. Rows within a
// group keep their input order, and groups are returned in creation order.
func GroupByIdentity(rows []FlightRow) [][]FlightRow {
	a := newGroupArena(rows)
	for i := range rows {
		a.add(i)
	}
	return a.result()
}

// Deduplicate groups rows by identity and merges each group, repeating until
// no two output rows share an identity. Later passes pick up links that only
// appear once a merged row carries keys from all of its members. The result is stable under a second
// call.
func Deduplicate(rows []FlightRow) []FlightRow {
	out := rows
	for {
		groups := GroupByIdentity(out)
		merged := make([]FlightRow, len(groups))
		for i, g := range groups {
			merged[i] = Resolve(g)
		}
		if len(merged) == len(out) {
			return merged
		}
		out = merged
	}
}
