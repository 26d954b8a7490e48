package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// decimalRe accepts plain decimal numbers only, so "NaN", "Inf", exponents
// and signs never reach strconv.
var decimalRe = regexp.MustCompile(`^(\d+)(?:\.(\d+))?$`)

// maxFrequencyPlaces is the finest resolution a kHz value can carry (1 Hz).
const maxFrequencyPlaces = 3

var pow10 = [...]int64{1, 10, 100, 1000}

// Frequency is a spot frequency held as exact Hz together with the number of
// kHz decimal places it was announced with, so "7030.0" prints back as
// "7030.0". Only leading zeros of the whole part are normalised away.
type Frequency struct {
	hz     int64
	places int
}

// ParseFrequency parses a decimal kHz value such as "14025.0". Values finer
// than 1 Hz or too large for int64 Hz are rejected rather than rounded.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(s)
	m := decimalRe.FindStringSubmatch(s)
	if m == nil {
		return Frequency{}, fmt.Errorf("frequency %q is not a decimal number", s)
	}
	whole, frac := m[1], m[2]
	if len(frac) > maxFrequencyPlaces {
		return Frequency{}, fmt.Errorf("frequency %q has more than %d decimal places", s, maxFrequencyPlaces)
	}
	digits := whole + frac + strings.Repeat("0", maxFrequencyPlaces-len(frac))
	hz, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Frequency{}, fmt.Errorf("frequency %q: %w", s, err)
	}
	return Frequency{hz: hz, places: len(frac)}, nil
}

// KHz returns the frequency in kHz.
func (f Frequency) KHz() float64 { return float64(f.hz) / 1000 }

// Hz returns the frequency in whole Hz.
func (f Frequency) Hz() int64 { return f.hz }

// String formats the frequency with the decimal places it was parsed with.
func (f Frequency) String() string {
	whole := f.hz / 1000
	if f.places == 0 {
		return strconv.FormatInt(whole, 10)
	}
	frac := (f.hz % 1000) / pow10[maxFrequencyPlaces-f.places]
	return fmt.Sprintf("%d.%0*d", whole, f.places, frac)
}

// MarshalJSON writes the frequency as a bare JSON number in its announced form.
func (f Frequency) MarshalJSON() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Frequency) UnmarshalJSON(b []byte) error {
	parsed, err := ParseFrequency(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// TimeOfDay is a UTC time of day. Bulletins that only carry the hour have
// Minute 0.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	s := string(b)
	if len(s) != 5 || s[2] != ':' {
		return fmt.Errorf("time of day %q: want HH:MM", s)
	}
	parsed, err := parseHHMM(s[:2] + s[3:])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// parseHHMM parses a four-digit UTC time such as "1510" (15:10).
func parseHHMM(hhmm string) (TimeOfDay, error) {
	if len(hhmm) != 4 {
		return TimeOfDay{}, fmt.Errorf("time %q: want HHMM", hhmm)
	}
	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || mins < 0 || mins > 59 {
		return TimeOfDay{}, fmt.Errorf("time %q out of range", hhmm)
	}
	return TimeOfDay{Hour: hour, Minute: mins}, nil
}

// parseHour parses a two-digit bulletin hour such as "18".
func parseHour(hh string) (TimeOfDay, error) {
	if len(hh) != 2 {
		return TimeOfDay{}, fmt.Errorf("hour %q: want HH", hh)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("hour %q out of range", hh)
	}
	return TimeOfDay{Hour: hour}, nil
}

var (
	errEmptyCallsign = errors.New("empty callsign")
	errCallsignChars = errors.New("callsign contains invalid characters")
)

var callsignRe = regexp.MustCompile(`^[A-Za-z0-9/\-#]+$`)

// normalizeCallsign uppercases a callsign. Empty callsigns and ones with
// characters outside the callsign alphabet are rejected.
func normalizeCallsign(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmptyCallsign
	}
	if !callsignRe.MatchString(s) {
		return "", errCallsignChars
	}
	return strings.ToUpper(s), nil
}

// normalizeText right-trims free text and maps empty to absent.
func normalizeText(s string) Optional[string] {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// trimLine strips surrounding whitespace and control characters such as CR,
// LF and the BEL some clusters append to spots.
func trimLine(line string) string {
	return strings.TrimFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
}

// Band is an amateur band name such as "20m".
type Band string

type bandEdge struct {
	band     Band
	low, top int64 // Hz, inclusive
}

// bandPlan covers the IARU allocations spots commonly land in.
var bandPlan = []bandEdge{
	{"2200m", 135_700, 137_800},
	{"630m", 472_000, 479_000},
	{"160m", 1_800_000, 2_000_000},
	{"80m", 3_500_000, 4_000_000},
	{"60m", 5_250_000, 5_450_000},
	{"40m", 7_000_000, 7_300_000},
	{"30m", 10_100_000, 10_150_000},
	{"20m", 14_000_000, 14_350_000},
	{"17m", 18_068_000, 18_168_000},
	{"15m", 21_000_000, 21_450_000},
	{"12m", 24_890_000, 24_990_000},
	{"10m", 28_000_000, 29_700_000},
	{"6m", 50_000_000, 54_000_000},
	{"4m", 70_000_000, 70_500_000},
	{"2m", 144_000_000, 148_000_000},
	{"70cm", 420_000_000, 450_000_000},
	{"23cm", 1_240_000_000, 1_300_000_000},
}

// bandFor derives the band from a frequency. Frequencies outside the plan
// leave the band absent.
func bandFor(f Frequency) Optional[Band] {
	hz := f.Hz()
	for _, e := range bandPlan {
		if hz >= e.low && hz <= e.top {
			return Some(e.band)
		}
	}
	return None[Band]()
}

var knownModes = map[string]bool{
	"CW": true, "SSB": true, "USB": true, "LSB": true, "AM": true, "FM": true,
	"RTTY": true, "FT8": true, "FT4": true, "JT65": true, "JT9": true, "JS8": true,
	"PSK31": true, "PSK63": true, "MSK144": true, "Q65": true, "SSTV": true, "OLIVIA": true,
}

// modeFromComment returns the first comment token when it names a mode, e.g.
// "CW sig 599" -> CW. Human spotters put the mode there by convention.
func modeFromComment(comment Optional[string]) Optional[string] {
	c, ok := comment.Get()
	if !ok {
		return None[string]()
	}
	fields := strings.Fields(c)
	if len(fields) == 0 {
		return None[string]()
	}
	mode := strings.ToUpper(fields[0])
	if !knownModes[mode] {
		return None[string]()
	}
	return Some(mode)
}
