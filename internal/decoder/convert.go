package decoder

// MetersPerSecondToKnots is the wire-unit conversion factor for wind speeds.
const MetersPerSecondToKnots = 1.943844

// MpsToKnots converts a wind speed from m/s to knots, preserving absence.
func MpsToKnots(v *float64) *float64 {
	if v == nil {
		return nil
	}
	kt := *v * MetersPerSecondToKnots
	return &kt
}

// CToF converts a temperature from Celsius to Fahrenheit, preserving absence.
func CToF(c *float64) *float64 {
	if c == nil {
		return nil
	}
	f := *c*9/5 + 32
	return &f
}

// HPaToInHg converts a pressure from hectopascals to inches of mercury,
// preserving absence.
func HPaToInHg(h *float64) *float64 {
	if h == nil {
		return nil
	}
	in := *h * 0.0295299830714
	return &in
}

// MmToIn converts a length from millimeters to inches, preserving absence.
func MmToIn(mm *float64) *float64 {
	if mm == nil {
		return nil
	}
	in := *mm / 25.4
	return &in
}
