package decoder_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericvh/waggle-tempest/internal/decoder"
)

func TestDecode_Observation(t *testing.T) {
	payload := []byte(`{
		"type": "obs_st",
		"serial_number": "ST-00012345",
		"hub_sn": "HB-00067890",
		"obs": [[1700000000, 0.5, 1.2, 3.4, 187, 3, 1013.2, 21.5, 58, 12000, 3.2, 540, 0.4, 1, 12, 2, 2.61, 1]]
	}`)

	rec, err := decoder.Decode(payload)
	require.NoError(t, err)

	obs, ok := rec.(decoder.Observation)
	require.True(t, ok, "expected Observation, got %T", rec)

	assert.Equal(t, decoder.TypeObservation, obs.Type())
	require.NotNil(t, obs.Epoch)
	assert.Equal(t, int64(1700000000), *obs.Epoch)

	// Wind speeds are converted to knots at decode time
	require.NotNil(t, obs.WindLull)
	assert.InDelta(t, 0.5*decoder.MetersPerSecondToKnots, *obs.WindLull, 1e-9)
	require.NotNil(t, obs.WindAvg)
	assert.InDelta(t, 1.2*decoder.MetersPerSecondToKnots, *obs.WindAvg, 1e-9)
	require.NotNil(t, obs.WindGust)
	assert.InDelta(t, 3.4*decoder.MetersPerSecondToKnots, *obs.WindGust, 1e-9)

	// Non-wind fields pass through in wire units
	require.NotNil(t, obs.WindDirection)
	assert.Equal(t, 187.0, *obs.WindDirection)
	require.NotNil(t, obs.Pressure)
	assert.Equal(t, 1013.2, *obs.Pressure)
	require.NotNil(t, obs.Temperature)
	assert.Equal(t, 21.5, *obs.Temperature)
	require.NotNil(t, obs.Humidity)
	assert.Equal(t, 58.0, *obs.Humidity)
	require.NotNil(t, obs.Illuminance)
	assert.Equal(t, 12000.0, *obs.Illuminance)
	require.NotNil(t, obs.UVIndex)
	assert.Equal(t, 3.2, *obs.UVIndex)
	require.NotNil(t, obs.SolarRadiation)
	assert.Equal(t, 540.0, *obs.SolarRadiation)
	require.NotNil(t, obs.RainSinceReport)
	assert.Equal(t, 0.4, *obs.RainSinceReport)
	require.NotNil(t, obs.PrecipType)
	assert.Equal(t, 1, *obs.PrecipType)
	assert.Equal(t, "rain", obs.PrecipTypeName())
	require.NotNil(t, obs.LightningDistance)
	assert.Equal(t, 12.0, *obs.LightningDistance)
	require.NotNil(t, obs.LightningCount)
	assert.Equal(t, 2.0, *obs.LightningCount)
	require.NotNil(t, obs.Battery)
	assert.Equal(t, 2.61, *obs.Battery)
	require.NotNil(t, obs.ReportInterval)
	assert.Equal(t, 1.0, *obs.ReportInterval)

	assert.Equal(t, "ST-00012345", obs.DeviceSerial)
	assert.Equal(t, "HB-00067890", obs.HubSerial)
}

func TestDecode_Observation_NullFieldIsAbsent(t *testing.T) {
	// Illuminance (index 9) is null; it must decode as absent, not zero
	payload := []byte(`{
		"type": "obs_st",
		"obs": [[1700000000, 0.5, 1.2, 3.4, 187, 3, 1013.2, 21.5, 58, null, 3.2, 540, 0.4, 0, 0, 0, 2.61, 1]]
	}`)

	rec, err := decoder.Decode(payload)
	require.NoError(t, err)

	obs := rec.(decoder.Observation)
	assert.Nil(t, obs.Illuminance)
	require.NotNil(t, obs.UVIndex)
	assert.Equal(t, 3.2, *obs.UVIndex)
}

func TestDecode_Observation_ShortArray(t *testing.T) {
	// Only the first 5 fields present; the rest are absent
	payload := []byte(`{"type": "obs_st", "obs": [[1700000000, 0.5, 1.2, 3.4, 187]]}`)

	rec, err := decoder.Decode(payload)
	require.NoError(t, err)

	obs := rec.(decoder.Observation)
	require.NotNil(t, obs.WindDirection)
	assert.Equal(t, 187.0, *obs.WindDirection)
	assert.Nil(t, obs.WindSampleInterval)
	assert.Nil(t, obs.Pressure)
	assert.Nil(t, obs.Battery)
	assert.Nil(t, obs.ReportInterval)
	assert.Nil(t, obs.PrecipType)
	assert.Equal(t, "unknown", obs.PrecipTypeName())
}

func TestDecode_Observation_ExtraTrailingElementsIgnored(t *testing.T) {
	payload := []byte(`{
		"type": "obs_st",
		"obs": [[1700000000, 0.5, 1.2, 3.4, 187, 3, 1013.2, 21.5, 58, 12000, 3.2, 540, 0.4, 0, 0, 0, 2.61, 1, 5.5, 99]]
	}`)

	rec, err := decoder.Decode(payload)
	require.NoError(t, err)

	obs := rec.(decoder.Observation)
	require.NotNil(t, obs.ReportInterval)
	assert.Equal(t, 1.0, *obs.ReportInterval)
}

func TestDecode_RapidWind_RoundTrip(t *testing.T) {
	payload := []byte(`{"type": "rapid_wind", "ob": [1700000000, 5.14, 270]}`)

	rec, err := decoder.Decode(payload)
	require.NoError(t, err)

	rw, ok := rec.(decoder.RapidWind)
	require.True(t, ok, "expected RapidWind, got %T", rec)

	require.NotNil(t, rw.Epoch)
	assert.Equal(t, int64(1700000000), *rw.Epoch)
	require.NotNil(t, rw.WindSpeed)
	assert.InDelta(t, 10.0, *rw.WindSpeed, 0.01) // 5.14 m/s × 1.943844
	require.NotNil(t, rw.WindDirection)
	assert.Equal(t, 270.0, *rw.WindDirection)
}

func TestDecode_HubStatus(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantFirmware string
	}{
		{
			name:         "string firmware",
			payload:      `{"type": "hub_status", "serial_number": "HB-00067890", "firmware_revision": "171", "uptime": 86400, "rssi": -62, "timestamp": 1700000000}`,
			wantFirmware: "171",
		},
		{
			name:         "numeric firmware",
			payload:      `{"type": "hub_status", "serial_number": "HB-00067890", "firmware_revision": 171, "uptime": 86400, "rssi": -62, "timestamp": 1700000000}`,
			wantFirmware: "171",
		},
		{
			name:         "missing firmware",
			payload:      `{"type": "hub_status", "serial_number": "HB-00067890", "uptime": 86400, "rssi": -62, "timestamp": 1700000000}`,
			wantFirmware: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := decoder.Decode([]byte(tt.payload))
			require.NoError(t, err)

			hs, ok := rec.(decoder.HubStatus)
			require.True(t, ok, "expected HubStatus, got %T", rec)

			assert.Equal(t, tt.wantFirmware, hs.Firmware)
			assert.Equal(t, "HB-00067890", hs.Serial)
			require.NotNil(t, hs.Uptime)
			assert.Equal(t, 86400.0, *hs.Uptime)
			require.NotNil(t, hs.RSSI)
			assert.Equal(t, -62.0, *hs.RSSI)
			require.NotNil(t, hs.Timestamp)
			assert.Equal(t, int64(1700000000), *hs.Timestamp)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{"invalid json", `{not json`, decoder.ErrMalformed},
		{"missing discriminant", `{"obs": [[1700000000]]}`, decoder.ErrMalformed},
		{"unknown discriminant", `{"type": "device_status"}`, decoder.ErrUnrecognized},
		{"obs not an array", `{"type": "obs_st", "obs": "not-an-array"}`, decoder.ErrMalformed},
		{"obs missing", `{"type": "obs_st"}`, decoder.ErrMalformed},
		{"obs empty outer", `{"type": "obs_st", "obs": []}`, decoder.ErrMalformed},
		{"obs empty inner", `{"type": "obs_st", "obs": [[]]}`, decoder.ErrMalformed},
		{"rapid_wind ob missing", `{"type": "rapid_wind"}`, decoder.ErrMalformed},
		{"rapid_wind ob short", `{"type": "rapid_wind", "ob": [1700000000, 5.14]}`, decoder.ErrMalformed},
		{"rapid_wind ob not array", `{"type": "rapid_wind", "ob": 42}`, decoder.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := decoder.Decode([]byte(tt.payload))
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestDecode_PositionalMappingIsStable(t *testing.T) {
	// Field i of the array always maps to the same named measurement
	// regardless of other fields' values.
	a := []byte(`{"type": "obs_st", "obs": [[1, 0, 0, 0, 0, 0, 900.0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0]]}`)
	b := []byte(`{"type": "obs_st", "obs": [[2, 9, 9, 9, 9, 9, 900.0, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9]]}`)

	recA, err := decoder.Decode(a)
	require.NoError(t, err)
	recB, err := decoder.Decode(b)
	require.NoError(t, err)

	obsA := recA.(decoder.Observation)
	obsB := recB.(decoder.Observation)

	require.NotNil(t, obsA.Pressure)
	require.NotNil(t, obsB.Pressure)
	assert.Equal(t, *obsA.Pressure, *obsB.Pressure)
}
