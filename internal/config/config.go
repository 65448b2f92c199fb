package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/nlouis56/vroume/internal/download"
)

// ErrMissingPath is returned when a required path flag is empty or absent.
var ErrMissingPath = errors.New("path does not exist")

// Config holds runtime configuration, loaded from environment variables.
// Command-line flags override it.
type Config struct {
	DBPath   string
	Workers  int
	LogLevel string

	// Playlist API, only needed by the download stage
	Credentials download.Credentials

	// ffmpeg binary handed to yt-dlp; empty uses PATH
	FFmpegLocation string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		DBPath:   envStr("VROUME_DB_PATH", "vroume.sqlite3"),
		Workers:  envInt("VROUME_WORKERS", runtime.NumCPU()),
		LogLevel: envStr("LOG_LEVEL", "info"),
		Credentials: download.Credentials{
			ClientID:     envStr("SPOTIFY_CLIENT_ID", ""),
			ClientSecret: envStr("SPOTIFY_CLIENT_SECRET", ""),
		},
		FFmpegLocation: envStr("VROUME_FFMPEG", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// RequireDir fails unless path names an existing directory.
func RequireDir(flag, path string) error {
	if path == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("--%s %s: %w", flag, path, ErrMissingPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("--%s %s is not a directory", flag, path)
	}
	return nil
}

// RequireFile fails unless path names an existing regular file.
func RequireFile(flag, path string) error {
	if path == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("--%s %s: %w", flag, path, ErrMissingPath)
	}
	if info.IsDir() {
		return fmt.Errorf("--%s %s is a directory", flag, path)
	}
	return nil
}

// RequireValue fails when a required non-path flag is empty.
func RequireValue(flag, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	return nil
}

// RequirePositive fails unless v > 0.
func RequirePositive(flag string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("--%s must be positive, got %v", flag, v)
	}
	return nil
}
