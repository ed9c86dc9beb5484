package nws

import (
	"strconv"
	"strings"
)

// TemperatureC converts a temperature reading to Celsius given its NWS unit
// code ("F" or "C"), per spec §4.5.
func TemperatureC(value float64, unit string) float64 {
	if strings.EqualFold(unit, "F") {
		return (value - 32) * 5 / 9
	}
	return value
}

// WindSpeedMPS parses a NWS wind-speed string ("10 mph", "5 kt", "10 to 15 mph")
// into metres/second, taking the first numeric token per spec §4.5.
func WindSpeedMPS(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}

	factor := 0.44704 // default mph
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "kt"):
		factor = 0.514444
	case strings.Contains(lower, "mph"):
		factor = 0.44704
	}
	mps := value * factor
	return &mps
}

var compassDegrees = map[string]float64{
	"N": 0, "NE": 45, "E": 90, "SE": 135,
	"S": 180, "SW": 225, "W": 270, "NW": 315,
}

// WindDirDeg maps an 8-point compass string to degrees, per spec §4.5.
func WindDirDeg(compass string) *float64 {
	deg, ok := compassDegrees[strings.ToUpper(strings.TrimSpace(compass))]
	if !ok {
		return nil
	}
	return &deg
}

// PrecipProb converts a 0..100 probabilityOfPrecipitation value to 0..1.
func PrecipProb(value *float64) *float64 {
	if value == nil {
		return nil
	}
	p := *value / 100
	return &p
}
