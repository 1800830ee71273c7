package decoder

// Message type tags as they appear in the hub's discriminant field.
const (
	TypeObservation = "obs_st"
	TypeRapidWind   = "rapid_wind"
	TypeHubStatus   = "hub_status"
)

// Record is a decoded hub message. Exactly three concrete shapes exist;
// unknown discriminants are rejected at decode time rather than modeled.
type Record interface {
	// Type returns the originating message-type tag.
	Type() string
}

// Observation holds a full station observation (obs_st).
// Wind speeds are in knots, converted from m/s at decode time.
// Nil fields were absent or null on the wire, never silently zero.
type Observation struct {
	Epoch              *int64   // seconds since epoch
	WindLull           *float64 // knots
	WindAvg            *float64 // knots
	WindGust           *float64 // knots
	WindDirection      *float64 // degrees
	WindSampleInterval *float64 // seconds
	Pressure           *float64 // hPa
	Temperature        *float64 // °C
	Humidity           *float64 // percent
	Illuminance        *float64 // lux
	UVIndex            *float64
	SolarRadiation     *float64 // W/m²
	RainSinceReport    *float64 // mm
	PrecipType         *int     // code, see PrecipTypeName
	LightningDistance  *float64 // km, strike average
	LightningCount     *float64
	Battery            *float64 // volts
	ReportInterval     *float64 // minutes

	DeviceSerial string
	HubSerial    string
}

func (Observation) Type() string { return TypeObservation }

// precipNames maps the wire precipitation type code to a name.
var precipNames = map[int]string{
	0: "none",
	1: "rain",
	2: "hail",
	3: "snow",
}

// PrecipTypeName returns the human-readable precipitation type.
// Absent or unknown codes return "unknown".
func (o Observation) PrecipTypeName() string {
	if o.PrecipType == nil {
		return "unknown"
	}
	if name, ok := precipNames[*o.PrecipType]; ok {
		return name
	}
	return "unknown"
}

// RapidWind holds an instantaneous wind reading (rapid_wind).
// WindSpeed is in knots, converted from m/s at decode time.
type RapidWind struct {
	Epoch         *int64
	WindSpeed     *float64 // knots
	WindDirection *float64 // degrees

	DeviceSerial string
	HubSerial    string
}

func (RapidWind) Type() string { return TypeRapidWind }

// HubStatus holds hub firmware and radio health (hub_status).
type HubStatus struct {
	Firmware  string
	Uptime    *float64 // seconds
	RSSI      *float64 // dBm
	Serial    string
	Timestamp *int64 // seconds since epoch
}

func (HubStatus) Type() string { return TypeHubStatus }
