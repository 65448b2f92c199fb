package service

import (
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/nlouis56/vroume/internal/download"
	"github.com/nlouis56/vroume/internal/storage"
	"github.com/nlouis56/vroume/pkg/logger"
)

type Config struct {
	DBPath  string
	Workers int
	Logger  *logger.Logger
	Catalog *storage.DBClient
	Rand    *rand.Rand

	Credentials    download.Credentials
	FFmpegLocation string

	// Overridable download backends; nil builds the real clients.
	Playlists PlaylistSource
	Searcher  download.Searcher
	Audio     download.AudioDownloader
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Workers = n
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithCatalog uses an already opened catalog instead of opening DBPath.
// The service does not close it.
func WithCatalog(db *storage.DBClient) Option {
	return func(c *Config) {
		c.Catalog = db
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(c *Config) {
		c.Rand = rng
	}
}

func WithCredentials(creds download.Credentials) Option {
	return func(c *Config) {
		c.Credentials = creds
	}
}

func WithFFmpegLocation(path string) Option {
	return func(c *Config) {
		c.FFmpegLocation = path
	}
}

func WithPlaylistSource(p PlaylistSource) Option {
	return func(c *Config) {
		c.Playlists = p
	}
}

func WithAudioBackend(s download.Searcher, a download.AudioDownloader) Option {
	return func(c *Config) {
		c.Searcher = s
		c.Audio = a
	}
}

func defaultConfig() *Config {
	seed := uint64(time.Now().UnixNano())
	return &Config{
		DBPath:  storage.DefaultDBFile,
		Workers: runtime.NumCPU(),
		Rand:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}
}
