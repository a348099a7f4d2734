package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CAMERA_SOURCE", "ANPR_BACKEND", "ANPR_TIMEOUT", "AUTO_START",
		"GATE_A", "GATE_B", "PIXELS_PER_METER", "SPEED_LIMIT", "MOTION_THRESHOLD",
		"MIN_MOTION_PIXELS", "SAMPLE_STRIDE", "GATE_BAND_PX", "COOL_DOWN", "MAX_SESSION_AGE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, SourceDevice, cfg.CameraSource)
	assert.Equal(t, RecognitionGemini, cfg.RecognitionBackend)
	assert.Equal(t, 15*time.Second, cfg.RecognitionTimeout)
	assert.True(t, cfg.AutoStart)
	assert.Equal(t, DefaultCalibration(), cfg.Calibration)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CAMERA_SOURCE", SourceUDP)
	t.Setenv("CAMERAS_PORT", "6000")
	t.Setenv("ANPR_BACKEND", RecognitionHTTP)
	t.Setenv("ANPR_TIMEOUT", "3s")
	t.Setenv("AUTO_START", "false")
	t.Setenv("GATE_A", "0.25")
	t.Setenv("GATE_B", "0.75")
	t.Setenv("SPEED_LIMIT", "50")
	t.Setenv("COOL_DOWN", "1500ms")
	t.Setenv("MAX_SESSION_AGE", "10s")
	t.Setenv("MIN_MOTION_PIXELS", "not a number")

	cfg := Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, SourceUDP, cfg.CameraSource)
	assert.Equal(t, 6000, cfg.CamerasPort)
	assert.Equal(t, RecognitionHTTP, cfg.RecognitionBackend)
	assert.Equal(t, 3*time.Second, cfg.RecognitionTimeout)
	assert.False(t, cfg.AutoStart)
	assert.Equal(t, 0.25, cfg.Calibration.GateA)
	assert.Equal(t, 0.75, cfg.Calibration.GateB)
	assert.Equal(t, 50.0, cfg.Calibration.SpeedLimitKmh)
	assert.Equal(t, 1500*time.Millisecond, cfg.Calibration.CoolDown)
	assert.Equal(t, 10*time.Second, cfg.Calibration.MaxSessionAge)
	// unparsable values fall back to the default
	assert.Equal(t, 50, cfg.Calibration.MinMotionPixels)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:               8080,
			CameraSource:       SourceDevice,
			RecognitionBackend: RecognitionNone,
			ProcessingInterval: 1,
			Calibration:        DefaultCalibration(),
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port", func(c *Config) { c.Port = 0 }},
		{"unknown source", func(c *Config) { c.CameraSource = "rtsp" }},
		{"file source without path", func(c *Config) { c.CameraSource = SourceFile }},
		{"gemini without key", func(c *Config) { c.RecognitionBackend = RecognitionGemini }},
		{"http without url", func(c *Config) { c.RecognitionBackend = RecognitionHTTP }},
		{"unknown backend", func(c *Config) { c.RecognitionBackend = "ocr" }},
		{"interval", func(c *Config) { c.ProcessingInterval = 0 }},
		{"calibration", func(c *Config) { c.Calibration.PixelsPerMeter = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestCalibration_Validate(t *testing.T) {
	require.NoError(t, DefaultCalibration().Validate())

	tests := []struct {
		name   string
		mutate func(c *Calibration)
	}{
		{"gate A below zero", func(c *Calibration) { c.GateA = -0.1 }},
		{"gate B above one", func(c *Calibration) { c.GateB = 1.2 }},
		{"gates inverted", func(c *Calibration) { c.GateA, c.GateB = 0.7, 0.3 }},
		{"gates equal", func(c *Calibration) { c.GateA, c.GateB = 0.5, 0.5 }},
		{"pixels per meter", func(c *Calibration) { c.PixelsPerMeter = 0 }},
		{"speed limit", func(c *Calibration) { c.SpeedLimitKmh = -1 }},
		{"threshold", func(c *Calibration) { c.MotionThreshold = -1 }},
		{"min pixels", func(c *Calibration) { c.MinMotionPixels = 0 }},
		{"stride", func(c *Calibration) { c.SampleStride = 0 }},
		{"band", func(c *Calibration) { c.GateBandPx = -1 }},
		{"cool-down", func(c *Calibration) { c.CoolDown = -time.Second }},
		{"max session age", func(c *Calibration) { c.MaxSessionAge = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultCalibration()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestCalibration_ValidateReportsAllErrors(t *testing.T) {
	c := DefaultCalibration()
	c.PixelsPerMeter = 0
	c.SampleStride = 0

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pixels per meter")
	assert.Contains(t, err.Error(), "sample stride")
}

func TestCalibration_GateRows(t *testing.T) {
	a, b := DefaultCalibration().GateRows(720)
	assert.InDelta(t, 216.0, a, 1e-9)
	assert.InDelta(t, 504.0, b, 1e-9)
}
