// Package decoder classifies raw hub messages by their discriminant field
// and maps positional observation arrays into typed records.
//
// The wire format is externally fixed by the weather-station hub: JSON
// envelopes whose "type" field selects the shape, with obs_st and
// rapid_wind carrying positional arrays. Wind speeds arrive in m/s and
// are converted to knots here so downstream components only ever see the
// published unit.
package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMalformed reports a payload that could not be parsed into the
	// shape its discriminant promises. The message is discarded; the
	// pipeline continues.
	ErrMalformed = errors.New("malformed message")

	// ErrUnrecognized reports a discriminant no decode variant exists for.
	ErrUnrecognized = errors.New("unrecognized message type")
)

// obs_st positional field indices, fixed by the hub firmware.
const (
	obsFieldEpoch = iota
	obsFieldWindLull
	obsFieldWindAvg
	obsFieldWindGust
	obsFieldWindDirection
	obsFieldWindSampleInterval
	obsFieldPressure
	obsFieldTemperature
	obsFieldHumidity
	obsFieldIlluminance
	obsFieldUVIndex
	obsFieldSolarRadiation
	obsFieldRainSinceReport
	obsFieldPrecipType
	obsFieldLightningDistance
	obsFieldLightningCount
	obsFieldBattery
	obsFieldReportInterval
	obsFieldCount
)

// rapid_wind positional field indices.
const (
	rapidFieldEpoch = iota
	rapidFieldWindSpeed
	rapidFieldWindDirection
	rapidFieldCount
)

// envelope is the common outer shape of every hub message.
type envelope struct {
	Type             string          `json:"type"`
	SerialNumber     string          `json:"serial_number"`
	HubSN            string          `json:"hub_sn"`
	Obs              json.RawMessage `json:"obs"`
	Ob               json.RawMessage `json:"ob"`
	FirmwareRevision json.RawMessage `json:"firmware_revision"`
	Uptime           *float64        `json:"uptime"`
	RSSI             *float64        `json:"rssi"`
	Timestamp        *int64          `json:"timestamp"`
}

// Decode parses a raw hub message and dispatches on its discriminant.
// It returns ErrMalformed for unparseable or mis-shaped payloads and
// ErrUnrecognized for unknown discriminants; both are recoverable and
// must not stop ingestion of subsequent messages.
func Decode(data []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type discriminant", ErrMalformed)
	}

	switch env.Type {
	case TypeObservation:
		return decodeObservation(&env)
	case TypeRapidWind:
		return decodeRapidWind(&env)
	case TypeHubStatus:
		return decodeHubStatus(&env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognized, env.Type)
	}
}

// decodeObservation maps the first obs array positionally into an
// Observation. Missing trailing elements are absent; extra trailing
// elements are ignored.
func decodeObservation(env *envelope) (Record, error) {
	if len(env.Obs) == 0 {
		return nil, fmt.Errorf("%w: obs_st without obs array", ErrMalformed)
	}

	var outer [][]*float64
	if err := json.Unmarshal(env.Obs, &outer); err != nil {
		return nil, fmt.Errorf("%w: obs is not an array of observations: %v", ErrMalformed, err)
	}
	if len(outer) == 0 || len(outer[0]) == 0 {
		return nil, fmt.Errorf("%w: empty obs array", ErrMalformed)
	}

	obs := obsFields(outer[0])

	rec := Observation{
		Epoch:              toEpoch(obs.at(obsFieldEpoch)),
		WindLull:           MpsToKnots(obs.at(obsFieldWindLull)),
		WindAvg:            MpsToKnots(obs.at(obsFieldWindAvg)),
		WindGust:           MpsToKnots(obs.at(obsFieldWindGust)),
		WindDirection:      obs.at(obsFieldWindDirection),
		WindSampleInterval: obs.at(obsFieldWindSampleInterval),
		Pressure:           obs.at(obsFieldPressure),
		Temperature:        obs.at(obsFieldTemperature),
		Humidity:           obs.at(obsFieldHumidity),
		Illuminance:        obs.at(obsFieldIlluminance),
		UVIndex:            obs.at(obsFieldUVIndex),
		SolarRadiation:     obs.at(obsFieldSolarRadiation),
		RainSinceReport:    obs.at(obsFieldRainSinceReport),
		PrecipType:         toCode(obs.at(obsFieldPrecipType)),
		LightningDistance:  obs.at(obsFieldLightningDistance),
		LightningCount:     obs.at(obsFieldLightningCount),
		Battery:            obs.at(obsFieldBattery),
		ReportInterval:     obs.at(obsFieldReportInterval),
		DeviceSerial:       env.SerialNumber,
		HubSerial:          env.HubSN,
	}

	return rec, nil
}

// decodeRapidWind maps the 3-element ob array positionally.
func decodeRapidWind(env *envelope) (Record, error) {
	if len(env.Ob) == 0 {
		return nil, fmt.Errorf("%w: rapid_wind without ob array", ErrMalformed)
	}

	var ob []*float64
	if err := json.Unmarshal(env.Ob, &ob); err != nil {
		return nil, fmt.Errorf("%w: ob is not an array: %v", ErrMalformed, err)
	}
	if len(ob) < rapidFieldCount {
		return nil, fmt.Errorf("%w: rapid_wind ob has %d elements, want %d", ErrMalformed, len(ob), rapidFieldCount)
	}

	fields := obsFields(ob)

	rec := RapidWind{
		Epoch:         toEpoch(fields.at(rapidFieldEpoch)),
		WindSpeed:     MpsToKnots(fields.at(rapidFieldWindSpeed)),
		WindDirection: fields.at(rapidFieldWindDirection),
		DeviceSerial:  env.SerialNumber,
		HubSerial:     env.HubSN,
	}

	return rec, nil
}

// decodeHubStatus reads named fields directly; no positional array.
func decodeHubStatus(env *envelope) (Record, error) {
	rec := HubStatus{
		Firmware:  firmwareString(env.FirmwareRevision),
		Uptime:    env.Uptime,
		RSSI:      env.RSSI,
		Serial:    env.SerialNumber,
		Timestamp: env.Timestamp,
	}
	return rec, nil
}

// obsFields wraps a positional array with bounds-safe access: indices
// past the end are absent, not errors.
type obsFields []*float64

func (f obsFields) at(i int) *float64 {
	if i >= len(f) {
		return nil
	}
	return f[i]
}

func toEpoch(v *float64) *int64 {
	if v == nil {
		return nil
	}
	e := int64(*v)
	return &e
}

func toCode(v *float64) *int {
	if v == nil {
		return nil
	}
	c := int(*v)
	return &c
}

// firmwareString tolerates both string and numeric firmware revisions;
// hub firmware has shipped both encodings.
func firmwareString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}
