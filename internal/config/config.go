package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceDevice = "device"
	SourceFile   = "file"
	SourceUDP    = "udp"

	RecognitionGemini = "gemini"
	RecognitionHTTP   = "http"
	RecognitionNone   = "none"
)

type Config struct {
	Port               int
	Password           string
	LogDirectory       string
	ImageDirectory     string
	DatabasePath       string
	CameraSource       string
	CameraDevice       int
	CameraFile         string
	CamerasPort        int
	ProcessingInterval int // Co którą klatkę przetwarzać (1=każdą)
	BufferLimit        int
	FlushInterval      int // sekundy
	RecognitionBackend string
	RecognitionURL     string
	GeminiAPIKey       string
	GeminiModel        string
	RecognitionTimeout time.Duration
	AutoStart          bool
	Calibration        Calibration
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	// .env jest opcjonalny
	_ = godotenv.Load()

	return &Config{
		Port:               getEnvAsInt("PORT", 8080),
		Password:           getEnv("PASSWORD", "sentinel"),
		LogDirectory:       getEnv("LOG_DIR", filepath.Join(".", "logs")),
		ImageDirectory:     getEnv("IMAGE_DIR", filepath.Join(".", "violations")),
		DatabasePath:       getEnv("DB_PATH", filepath.Join(".", "data", "violations.db")),
		CameraSource:       getEnv("CAMERA_SOURCE", SourceDevice),
		CameraDevice:       getEnvAsInt("CAMERA_DEVICE", 0),
		CameraFile:         getEnv("CAMERA_FILE", ""),
		CamerasPort:        getEnvAsInt("CAMERAS_PORT", 5005),
		ProcessingInterval: getEnvAsInt("PROCESSING_INTERVAL", 1),
		BufferLimit:        getEnvAsInt("BUFFER_LIMIT", 20),
		FlushInterval:      getEnvAsInt("FLUSH_INTERVAL", 5),
		RecognitionBackend: getEnv("ANPR_BACKEND", RecognitionGemini),
		RecognitionURL:     getEnv("ANPR_URL", "http://localhost:5000/recognize"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		RecognitionTimeout: getEnvAsDuration("ANPR_TIMEOUT", 15*time.Second),
		AutoStart:          getEnvAsBool("AUTO_START", true),
		Calibration:        loadCalibration(),
	}
}

func loadCalibration() Calibration {
	def := DefaultCalibration()
	return Calibration{
		GateA:           getEnvAsFloat("GATE_A", def.GateA),
		GateB:           getEnvAsFloat("GATE_B", def.GateB),
		PixelsPerMeter:  getEnvAsFloat("PIXELS_PER_METER", def.PixelsPerMeter),
		SpeedLimitKmh:   getEnvAsFloat("SPEED_LIMIT", def.SpeedLimitKmh),
		MotionThreshold: getEnvAsInt("MOTION_THRESHOLD", def.MotionThreshold),
		MinMotionPixels: getEnvAsInt("MIN_MOTION_PIXELS", def.MinMotionPixels),
		SampleStride:    getEnvAsInt("SAMPLE_STRIDE", def.SampleStride),
		GateBandPx:      getEnvAsFloat("GATE_BAND_PX", def.GateBandPx),
		CoolDown:        getEnvAsDuration("COOL_DOWN", def.CoolDown),
		MaxSessionAge:   getEnvAsDuration("MAX_SESSION_AGE", def.MaxSessionAge),
	}
}

// Validate checks the whole configuration, including calibration.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}
	switch c.CameraSource {
	case SourceDevice, SourceUDP:
	case SourceFile:
		if c.CameraFile == "" {
			errs = append(errs, errors.New("CAMERA_FILE is required for file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown camera source %q", c.CameraSource))
	}
	switch c.RecognitionBackend {
	case RecognitionNone:
	case RecognitionHTTP:
		if c.RecognitionURL == "" {
			errs = append(errs, errors.New("ANPR_URL is required for http backend"))
		}
	case RecognitionGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for gemini backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ANPR backend %q", c.RecognitionBackend))
	}
	if c.ProcessingInterval < 1 {
		errs = append(errs, errors.New("processing interval must be at least 1"))
	}
	if err := c.Calibration.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
