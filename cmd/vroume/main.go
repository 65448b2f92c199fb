package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/nlouis56/vroume/internal/config"
	"github.com/nlouis56/vroume/internal/service"
	"github.com/nlouis56/vroume/pkg/logger"
)

// Global flags
var (
	cfg      = config.Load()
	logLevel string
)

func init() {
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite run catalog")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of parallel workers")
	flag.StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.FFmpegLocation, "ffmpeg", cfg.FFmpegLocation, "ffmpeg binary used by yt-dlp")
}

// createService creates the stage service with the configured options
func createService() (*service.Service, error) {
	return service.New(
		service.WithDBPath(cfg.DBPath),
		service.WithWorkers(cfg.Workers),
		service.WithLogger(logger.GetLogger()),
		service.WithCredentials(cfg.Credentials),
		service.WithFFmpegLocation(cfg.FFmpegLocation),
	)
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string)
}

var commands = []command{
	{"extract", "-i <library> -o <dir> -d <seconds>", handleExtract},
	{"clean", "-i <dir>", handleClean},
	{"dedupe", "-i <file.csv> [-k frame_id]", handleDedupe},
	{"scrub", "-i <file.csv> -o <file.csv> [-r ranges.json]", handleScrub},
	{"recombine", "-i <dir> -o <dir> [-s 1000,5000,...]", handleRecombine},
	{"anonymize", "-i <library> -l <length> [-o correspondence.csv]", handleAnonymize},
	{"prune", "-m <library> [-c correspondence.csv] [-n max]", handlePrune},
	{"equalize", "-i <library> [-l length]", handleEqualize},
	{"spectrograms", "-i <library> -o <dir> [-l seconds]", handleSpectrograms},
	{"segment", "-i <dir> -o <dir> [-d seconds] [-t threshold]", handleSegment},
	{"download", "-p <playlists.txt> -o <dir>", handleDownload},
	{"runs", "[--stage name] [-n limit]", handleRuns},
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()
	if lvl, err := logger.ParseLevel(logLevel); err == nil {
		log.SetLevel(lvl)
	} else {
		log.Warnf("%v, keeping %s", err, cfg.LogLevel)
	}

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	name := flag.Arg(0)
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		log.Infof("Executing command: %s", name)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		cmd.run(ctx, flag.Args()[1:])
		return
	}
	fmt.Printf("Unknown command: %s\n", name)
	printUsage()
	os.Exit(1)
}

func printUsage() {
	fmt.Println("vroume - music genre dataset pipeline")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>         Run catalog (env: VROUME_DB_PATH, default: vroume.sqlite3)")
	fmt.Println("  --workers <n>       Parallel workers (env: VROUME_WORKERS, default: CPU count)")
	fmt.Println("  --log-level <lvl>   Log level (env: LOG_LEVEL, default: info)")
	fmt.Println("  --ffmpeg <path>     ffmpeg for downloads (env: VROUME_FFMPEG)")
	fmt.Println("\nUsage:")
	for _, cmd := range commands {
		fmt.Printf("  vroume [global-options] %-12s %s\n", cmd.name, cmd.usage)
	}
	fmt.Println("\nShort flags have long forms: -i/--input-path, -o/--output-path, -d/--duration, -l/--length.")
	fmt.Println("\nExamples:")
	fmt.Println("  vroume extract -i music/ -o features/ -d 3")
	fmt.Println("  vroume clean -i features/")
	fmt.Println("  vroume --workers 4 recombine -i scrubbed/ -o slices/ -s 1000,10000")
}
