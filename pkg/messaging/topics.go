// Package messaging defines the fixed topic names published by the plugin.
package messaging

// Topic constants for published Tempest measurements.
// Follow the pattern: tempest.{group}.{measurement}
const (
	// Wind measurements from obs_st observations
	TopicWindSpeedLull = "tempest.wind.speed.lull"
	TopicWindSpeedAvg  = "tempest.wind.speed.avg"
	TopicWindSpeedGust = "tempest.wind.speed.gust"
	TopicWindDirection = "tempest.wind.direction"

	// Instantaneous wind from rapid_wind messages
	TopicWindSpeedInstant     = "tempest.wind.speed.instant"
	TopicWindDirectionInstant = "tempest.wind.direction.instant"

	// Environmental measurements
	TopicPressure    = "tempest.pressure"
	TopicTemperature = "tempest.temperature"
	TopicHumidity    = "tempest.humidity"

	// Light measurements
	TopicIlluminance    = "tempest.light.illuminance"
	TopicUVIndex        = "tempest.light.uv_index"
	TopicSolarRadiation = "tempest.light.solar_radiation"

	// Precipitation and lightning
	TopicRainSinceReport   = "tempest.rain.since_report"
	TopicLightningDistance = "tempest.lightning.distance"
	TopicLightningCount    = "tempest.lightning.count"

	// Station system measurements
	TopicBattery        = "tempest.battery"
	TopicReportInterval = "tempest.report_interval"

	// Hub status measurements
	TopicHubFirmware = "tempest.hub.firmware"
	TopicHubUptime   = "tempest.hub.uptime"
	TopicHubRSSI     = "tempest.hub.rssi"

	// Plugin liveness (1=active, 0=error/stopped)
	TopicStatus = "tempest.status"
)

// DLQSubjectPrefix is the subject prefix for dead-lettered raw frames.
// The drop reason is appended: tempest.dlq.malformed, tempest.dlq.unrecognized.
const DLQSubjectPrefix = "tempest.dlq"

// Scope is the delivery scope attached to every publication.
const Scope = "beehive"
