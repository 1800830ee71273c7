// Package publish maps decoded station records onto the fixed set of
// measurement topics and delivers them to the downstream sink.
//
// Adapt is pure: one decoded record in, an ordered batch of publish
// intents out. Absent fields are published with a reserved sentinel whose
// token also rides in metadata, so downstream consumers can distinguish
// "sensor reported zero" from "sensor reported nothing".
package publish

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ericvh/waggle-tempest/internal/decoder"
	"github.com/ericvh/waggle-tempest/pkg/messaging"
)

// Absence sentinels. Fixed wire-level contract with downstream consumers.
const (
	MissingNumeric = -9999.0
	MissingString  = "unknown"
)

// SensorName identifies the measurement source in metadata.
const SensorName = "tempest-weather-station"

// Intent is one pending publication: a topic, a value, and the metadata
// that travels with it. Stateless; discarded after the delivery attempt.
type Intent struct {
	Topic       string
	Value       any
	Unit        string
	Description string
	SourceType  string

	// Sentinel is the absence sentinel for this topic's value kind.
	// It rides in metadata on every publish so consumers can compare
	// the value against it.
	Sentinel any

	// Missing marks a value substituted by the sentinel.
	Missing bool

	// Timestamp is the UTC decode time, not the device-reported epoch.
	// Decode time is monotonic with publication order; device clocks
	// are not.
	Timestamp time.Time
}

// Metadata renders the intent's descriptive fields as message headers.
// The missing key carries the sentinel value itself, not a flag.
func (i Intent) Metadata() map[string]string {
	return map[string]string{
		"sensor":      SensorName,
		"units":       i.Unit,
		"description": i.Description,
		"source":      i.SourceType,
		"missing":     sentinelString(i.Sentinel),
	}
}

// sentinelString renders a sentinel for the metadata map. The numeric
// sentinel keeps its decimal point so consumers see the exact token.
func sentinelString(v any) string {
	switch s := v.(type) {
	case float64:
		return strconv.FormatFloat(s, 'f', 1, 64)
	case string:
		return s
	case nil:
		return strconv.FormatFloat(MissingNumeric, 'f', 1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// Measurement is the JSON payload published for each intent.
type Measurement struct {
	Value     any               `json:"value"`
	Timestamp int64             `json:"timestamp"` // nanoseconds since epoch
	Scope     string            `json:"scope"`
	Meta      map[string]string `json:"meta"`
}

// Payload builds the wire payload for the intent.
func (i Intent) Payload() Measurement {
	return Measurement{
		Value:     i.Value,
		Timestamp: i.Timestamp.UnixNano(),
		Scope:     messaging.Scope,
		Meta:      i.Metadata(),
	}
}

// Adapt maps one decoded record to its publish intents. The batch is
// ordered and complete: every defined measurement for the record's type
// appears exactly once, absent fields carrying their sentinel.
func Adapt(rec decoder.Record, now time.Time) []Intent {
	switch r := rec.(type) {
	case decoder.Observation:
		return adaptObservation(r, now)
	case decoder.RapidWind:
		return adaptRapidWind(r, now)
	case decoder.HubStatus:
		return adaptHubStatus(r, now)
	default:
		return nil
	}
}

// numeric yields the field value or the numeric absence sentinel.
func numeric(v *float64) (any, bool) {
	if v == nil {
		return MissingNumeric, true
	}
	return *v, false
}

// text yields the string value or the string absence sentinel.
func text(v string) (any, bool) {
	if v == "" {
		return MissingString, true
	}
	return v, false
}

func intent(topic string, value any, sentinel any, missing bool, unit, desc, source string, now time.Time) Intent {
	return Intent{
		Topic:       topic,
		Value:       value,
		Unit:        unit,
		Description: desc,
		SourceType:  source,
		Sentinel:    sentinel,
		Missing:     missing,
		Timestamp:   now,
	}
}

func adaptObservation(o decoder.Observation, now time.Time) []Intent {
	src := decoder.TypeObservation

	fields := []struct {
		topic string
		value *float64
		unit  string
		desc  string
	}{
		{messaging.TopicWindSpeedLull, o.WindLull, "knots", "Wind lull (minimum 3 second sample)"},
		{messaging.TopicWindSpeedAvg, o.WindAvg, "knots", "Wind speed (average over report interval)"},
		{messaging.TopicWindSpeedGust, o.WindGust, "knots", "Wind gust (maximum 3 second sample)"},
		{messaging.TopicWindDirection, o.WindDirection, "degrees", "Wind direction"},
		{messaging.TopicPressure, o.Pressure, "hPa", "Station pressure"},
		{messaging.TopicTemperature, o.Temperature, "degrees Celsius", "Air temperature"},
		{messaging.TopicHumidity, o.Humidity, "percent", "Relative humidity"},
		{messaging.TopicIlluminance, o.Illuminance, "lux", "Illuminance"},
		{messaging.TopicUVIndex, o.UVIndex, "index", "UV index"},
		{messaging.TopicSolarRadiation, o.SolarRadiation, "W/m^2", "Solar radiation"},
		{messaging.TopicRainSinceReport, o.RainSinceReport, "mm", "Rain accumulated since last report"},
		{messaging.TopicLightningDistance, o.LightningDistance, "km", "Lightning strike average distance"},
		{messaging.TopicLightningCount, o.LightningCount, "count", "Lightning strike count"},
		{messaging.TopicBattery, o.Battery, "volts", "Battery voltage"},
		{messaging.TopicReportInterval, o.ReportInterval, "minutes", "Report interval"},
	}

	intents := make([]Intent, 0, len(fields))
	for _, f := range fields {
		v, missing := numeric(f.value)
		intents = append(intents, intent(f.topic, v, MissingNumeric, missing, f.unit, f.desc, src, now))
	}
	return intents
}

func adaptRapidWind(r decoder.RapidWind, now time.Time) []Intent {
	src := decoder.TypeRapidWind

	speed, speedMissing := numeric(r.WindSpeed)
	dir, dirMissing := numeric(r.WindDirection)

	return []Intent{
		intent(messaging.TopicWindSpeedInstant, speed, MissingNumeric, speedMissing,
			"knots", "Instantaneous wind speed", src, now),
		intent(messaging.TopicWindDirectionInstant, dir, MissingNumeric, dirMissing,
			"degrees", "Instantaneous wind direction", src, now),
	}
}

func adaptHubStatus(h decoder.HubStatus, now time.Time) []Intent {
	src := decoder.TypeHubStatus

	firmware, fwMissing := text(h.Firmware)
	uptime, upMissing := numeric(h.Uptime)
	rssi, rssiMissing := numeric(h.RSSI)

	return []Intent{
		intent(messaging.TopicHubFirmware, firmware, MissingString, fwMissing,
			"revision", "Hub firmware revision", src, now),
		intent(messaging.TopicHubUptime, uptime, MissingNumeric, upMissing,
			"seconds", "Hub uptime", src, now),
		intent(messaging.TopicHubRSSI, rssi, MissingNumeric, rssiMissing,
			"dBm", "Hub radio signal strength", src, now),
	}
}

// StatusIntent builds the liveness publication: 1 while the pipeline is
// healthy, 0 on listener failure or shutdown.
func StatusIntent(value int, now time.Time) Intent {
	return Intent{
		Topic:       messaging.TopicStatus,
		Value:       value,
		Unit:        "state",
		Description: "Plugin status (1=active, 0=error)",
		SourceType:  "status",
		Sentinel:    MissingNumeric,
		Timestamp:   now,
	}
}
