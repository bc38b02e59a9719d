package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config contains the full configuration for the streaming engine.
type Config struct {
	FFmpeg  FFmpegConfig  `json:"ffmpeg"`
	Opus    OpusConfig    `json:"opus"`
	Stream  StreamConfig  `json:"stream"`
	Logging LoggingConfig `json:"logging"`
}

// FFmpegConfig contains configuration for the FFmpeg decode process.
type FFmpegConfig struct {
	BinaryPath   string        `json:"binary_path"`
	InputArgs    []string      `json:"input_args"`
	BufferSize   string        `json:"buffer_size"`
	MaxRestarts  int           `json:"max_restarts"`
	RestartDelay time.Duration `json:"restart_delay"`
}

// OpusConfig contains configuration for Opus encoding.
type OpusConfig struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	Bitrate    int `json:"bitrate"`
	FrameSize  int `json:"frame_size"`
}

// StreamConfig contains timing configuration for the streaming loop.
type StreamConfig struct {
	// ReadTimeout bounds a single PCM read from FFmpeg.
	ReadTimeout time.Duration `json:"read_timeout"`
	// SendTimeout bounds a single Opus frame send; a blocked send drops
	// the frame rather than wedging the loop.
	SendTimeout time.Duration `json:"send_timeout"`
	// HealthInterval is how often the stall detector runs.
	HealthInterval time.Duration `json:"health_interval"`
	// StallAfter is how long the stream may go without delivering a
	// frame before it is treated as stalled and restarted.
	StallAfter time.Duration `json:"stall_after"`
}

// LoggingConfig contains configuration for logging.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// DefaultConfig returns a configuration with sensible defaults: 48kHz
// stereo 20ms Opus frames, the values Discord voice expects.
func DefaultConfig() *Config {
	return &Config{
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			InputArgs: []string{
				"-reconnect", "1",
				"-reconnect_streamed", "1",
				"-reconnect_delay_max", "5",
			},
			BufferSize:   "64k",
			MaxRestarts:  3,
			RestartDelay: 2 * time.Second,
		},
		Opus: OpusConfig{
			SampleRate: 48000,
			Channels:   2,
			Bitrate:    128000,
			FrameSize:  960,
		},
		Stream: StreamConfig{
			ReadTimeout:    5 * time.Second,
			SendTimeout:    100 * time.Millisecond,
			HealthInterval: 5 * time.Second,
			StallAfter:     10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// LoadFromEnvironment overrides configuration values from PIPELINE_*
// environment variables. Unparseable values are ignored.
func (c *Config) LoadFromEnvironment() {
	if val := os.Getenv("PIPELINE_FFMPEG_PATH"); val != "" {
		c.FFmpeg.BinaryPath = val
	}
	if val := os.Getenv("PIPELINE_FFMPEG_MAX_RESTARTS"); val != "" {
		if restarts, err := strconv.Atoi(val); err == nil {
			c.FFmpeg.MaxRestarts = restarts
		}
	}
	if val := os.Getenv("PIPELINE_FFMPEG_RESTART_DELAY"); val != "" {
		if delay, err := time.ParseDuration(val); err == nil {
			c.FFmpeg.RestartDelay = delay
		}
	}
	if val := os.Getenv("PIPELINE_OPUS_BITRATE"); val != "" {
		if bitrate, err := strconv.Atoi(val); err == nil {
			c.Opus.Bitrate = bitrate
		}
	}
	if val := os.Getenv("PIPELINE_STREAM_READ_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			c.Stream.ReadTimeout = timeout
		}
	}
	if val := os.Getenv("PIPELINE_STREAM_STALL_AFTER"); val != "" {
		if stall, err := time.ParseDuration(val); err == nil {
			c.Stream.StallAfter = stall
		}
	}
	if val := os.Getenv("PIPELINE_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("PIPELINE_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	var errors []string

	if c.FFmpeg.BinaryPath == "" {
		errors = append(errors, "ffmpeg binary_path cannot be empty")
	}
	if c.FFmpeg.MaxRestarts < 0 {
		errors = append(errors, "ffmpeg max_restarts must be >= 0")
	}
	if c.FFmpeg.RestartDelay < 0 {
		errors = append(errors, "ffmpeg restart_delay must be >= 0")
	}

	if c.Opus.SampleRate <= 0 {
		errors = append(errors, "opus sample_rate must be > 0")
	}
	if c.Opus.Channels <= 0 {
		errors = append(errors, "opus channels must be > 0")
	}
	if c.Opus.Bitrate <= 0 {
		errors = append(errors, "opus bitrate must be > 0")
	}
	if c.Opus.FrameSize <= 0 {
		errors = append(errors, "opus frame_size must be > 0")
	}

	if c.Stream.ReadTimeout <= 0 {
		errors = append(errors, "stream read_timeout must be > 0")
	}
	if c.Stream.SendTimeout <= 0 {
		errors = append(errors, "stream send_timeout must be > 0")
	}
	if c.Stream.HealthInterval <= 0 {
		errors = append(errors, "stream health_interval must be > 0")
	}
	if c.Stream.StallAfter <= 0 {
		errors = append(errors, "stream stall_after must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "logging level must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "logging format must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}
	return nil
}

// FrameBytes returns the size in bytes of one PCM frame at the configured
// sample layout (16-bit samples).
func (c *OpusConfig) FrameBytes() int {
	return c.FrameSize * c.Channels * 2
}

// SamplesPerFrame returns the number of interleaved int16 samples in one
// frame.
func (c *OpusConfig) SamplesPerFrame() int {
	return c.FrameSize * c.Channels
}
