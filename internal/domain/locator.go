package domain

import (
	"fmt"
	"strings"
)

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocatorToGeo converts a 4 or 6 character Maidenhead locator ("JO62",
// "JO62qm") to the centre of its square.
func LocatorToGeo(locator string) (Geo, error) {
	loc := strings.ToUpper(strings.TrimSpace(locator))
	if len(loc) != 4 && len(loc) != 6 {
		return Geo{}, fmt.Errorf("locator %q: want 4 or 6 characters", locator)
	}
	if !inRange(loc[0], 'A', 'R') || !inRange(loc[1], 'A', 'R') ||
		!inRange(loc[2], '0', '9') || !inRange(loc[3], '0', '9') {
		return Geo{}, fmt.Errorf("locator %q: invalid field or square", locator)
	}

	lon := float64(loc[0]-'A')*20 - 180 + float64(loc[2]-'0')*2
	lat := float64(loc[1]-'A')*10 - 90 + float64(loc[3]-'0')

	if len(loc) == 4 {
		return Geo{Lat: lat + 0.5, Lon: lon + 1}, nil
	}

	if !inRange(loc[4], 'A', 'X') || !inRange(loc[5], 'A', 'X') {
		return Geo{}, fmt.Errorf("locator %q: invalid subsquare", locator)
	}
	lon += float64(loc[4]-'A')*(5.0/60) + 2.5/60
	lat += float64(loc[5]-'A')*(2.5/60) + 1.25/60
	return Geo{Lat: lat, Lon: lon}, nil
}

func inRange(c, lo, hi byte) bool {
	return c >= lo && c <= hi
}

// spotLocator returns the locator carried by DX and RBN spots.
func spotLocator(s Spot) (string, bool) {
	switch v := s.(type) {
	case DX:
		return v.Locator.Get()
	case RBN:
		return v.Locator.Get()
	default:
		return "", false
	}
}
