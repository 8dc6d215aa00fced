package domain

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	trailingDigits = regexp.MustCompile(`(\d{1,4})$`)
	anyDigits      = regexp.MustCompile(`\d+`)
	airportCodeRe  = regexp.MustCompile(`^[A-Z0-9]{3,4}$`)
	airlineICAORe  = regexp.MustCompile(`^[A-Z]{3}$`)
	icaoFlightRe   = regexp.MustCompile(`^([A-Z]{3})(\d{1,4})[A-Z]?$`)
	flightCodeRe   = regexp.MustCompile(`^[A-Z0-9]{2,3}\d{1,4}[A-Z]?$`)
	registrationRe = regexp.MustCompile(`^[A-Z0-9]{1,3}-?[A-Z0-9]{1,6}$`)
)

// NormalizeCode uppercases a code and strips all whitespace.
func NormalizeCode(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// NumericSuffix extracts the flight number digits from a code: the trailing
// run of up to four digits, else the first digit run anywhere, else "".
func NumericSuffix(s string) string {
	s = NormalizeCode(s)
	if m := trailingDigits.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return anyDigits.FindString(s)
}

// AirlineFromFlightICAO returns the three-letter operator designator that
// prefixes an ICAO flight code, or "".
func AirlineFromFlightICAO(code string) string {
	if m := icaoFlightRe.FindStringSubmatch(NormalizeCode(code)); m != nil {
		return m[1]
	}
	return ""
}

// IsICAOFlightCode reports whether code looks like an ICAO flight code
// (three-letter designator, up to four digits, optional suffix letter).
func IsICAOFlightCode(code string) bool {
	return icaoFlightRe.MatchString(NormalizeCode(code))
}

// cleanAirportCode normalizes an IATA or ICAO airport code, blanking values
// that are not three or four alphanumerics.
func cleanAirportCode(s string) string {
	s = NormalizeCode(s)
	if !airportCodeRe.MatchString(s) {
		return ""
	}
	return s
}

// cleanAirlineICAO normalizes a three-letter airline designator.
func cleanAirlineICAO(s string) string {
	s = NormalizeCode(s)
	if !airlineICAORe.MatchString(s) {
		return ""
	}
	return s
}

// cleanFlightCode normalizes a marketing or ICAO flight code, blanking
// values that do not look like one.
func cleanFlightCode(s string) string {
	s = NormalizeCode(s)
	if !flightCodeRe.MatchString(s) {
		return ""
	}
	return s
}

func cleanICAOFlightCode(s string) string {
	s = NormalizeCode(s)
	if !icaoFlightRe.MatchString(s) {
		return ""
	}
	return s
}

// cleanRegistration normalizes a tail number such as "xa-amx".
func cleanRegistration(s string) string {
	s = NormalizeCode(s)
	if !registrationRe.MatchString(s) {
		return ""
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
