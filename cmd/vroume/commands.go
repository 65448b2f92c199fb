package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/nlouis56/vroume/internal/audio"
	"github.com/nlouis56/vroume/internal/config"
	"github.com/nlouis56/vroume/internal/dataset"
	"github.com/nlouis56/vroume/internal/download"
	"github.com/nlouis56/vroume/internal/service"
	"github.com/nlouis56/vroume/internal/spectrogram"
	"github.com/nlouis56/vroume/pkg/logger"
)

// stringFlag registers one variable under several names, e.g. "i" and
// "input-path".
func stringFlag(fs *flag.FlagSet, p *string, value, usage string, names ...string) {
	for _, n := range names {
		fs.StringVar(p, n, value, usage)
	}
}

func floatFlag(fs *flag.FlagSet, p *float64, value float64, usage string, names ...string) {
	for _, n := range names {
		fs.Float64Var(p, n, value, usage)
	}
}

func intFlag(fs *flag.FlagSet, p *int, value int, usage string, names ...string) {
	for _, n := range names {
		fs.IntVar(p, n, value, usage)
	}
}

func parse(fs *flag.FlagSet, args []string) {
	// ExitOnError already reports and exits
	_ = fs.Parse(args)
}

// exitOnErr reports a failure on stdout and in the log, then exits.
func exitOnErr(what string, err error) {
	if err == nil {
		return
	}
	fmt.Printf("❌ %s: %v\n", what, err)
	logger.GetLogger().Errorf("%s: %v", what, err)
	os.Exit(1)
}

// checkConfig aborts before any work when an argument is invalid.
func checkConfig(errs ...error) {
	for _, err := range errs {
		if err != nil {
			fmt.Printf("❌ Configuration error: %v\n", err)
			logger.GetLogger().Errorf("Configuration error: %v", err)
			os.Exit(2)
		}
	}
}

func openService() *service.Service {
	fmt.Println("🔧 Initializing service...")
	svc, err := createService()
	exitOnErr("Failed to create service", err)
	return svc
}

func handleExtract(ctx context.Context, args []string) {
	var in, out string
	var duration float64
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	stringFlag(fs, &in, "", "Input directory containing subfolders of music files by genre", "i", "input-path")
	stringFlag(fs, &out, "", "Output directory, created if missing", "o", "output-path")
	floatFlag(fs, &duration, 0, "Duration of each frame in seconds", "d", "duration")
	parse(fs, args)

	checkConfig(
		config.RequireDir("input-path", in),
		config.RequireValue("output-path", out),
		config.RequirePositive("duration", duration),
	)

	svc := openService()
	defer svc.Close()

	bars := newProgress()
	results, err := svc.Extract(ctx, in, out, duration, bars.report)
	bars.wait()
	exitOnErr("Extraction failed", err)

	fmt.Printf("\n✅ Extracted %d genre table(s):\n", len(results))
	for _, r := range results {
		fmt.Printf("   %-16s %s rows, %s rejected frames, %d/%d files failed -> %s\n",
			r.Genre, humanize.Comma(int64(r.Stats.Rows)), humanize.Comma(int64(r.Stats.Rejected)),
			r.Stats.FailedFiles, r.Stats.Files, r.Output)
	}
}

func handleClean(ctx context.Context, args []string) {
	var in string
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	stringFlag(fs, &in, "", "Input directory containing the extracted features", "i", "input-path")
	parse(fs, args)

	checkConfig(config.RequireDir("input-path", in))

	svc := openService()
	defer svc.Close()

	reports, err := svc.Clean(in)
	exitOnErr("Cleaning failed", err)

	fmt.Printf("\n✅ Cleaned %d file(s):\n", len(reports))
	for _, r := range reports {
		fmt.Printf("   %s: kept %s of %s lines (%d blank, %d with zeros)\n",
			filepath.Base(r.Output), humanize.Comma(int64(r.Written)), humanize.Comma(int64(r.Lines)), r.Blank, r.Zeroed)
	}
}

func handleDedupe(ctx context.Context, args []string) {
	var in, key string
	fs := flag.NewFlagSet("dedupe", flag.ExitOnError)
	stringFlag(fs, &in, "", "Input csv file, overwritten in place", "i", "input-path")
	stringFlag(fs, &key, "frame_id", "Key column", "k", "key")
	parse(fs, args)

	checkConfig(config.RequireFile("input-path", in), config.RequireValue("key", key))

	svc := openService()
	defer svc.Close()

	removed, err := svc.Dedupe(in, key)
	exitOnErr("Duplicate removal failed", err)
	fmt.Printf("\n✅ Removed %s duplicated row(s) from %s\n", humanize.Comma(int64(removed)), in)
}

func handleScrub(ctx context.Context, args []string) {
	var in, out, ranges string
	fs := flag.NewFlagSet("scrub", flag.ExitOnError)
	stringFlag(fs, &in, "", "Input csv file", "i", "input-path")
	stringFlag(fs, &out, "", "Output csv file", "o", "output-path")
	stringFlag(fs, &ranges, "", "JSON file of genre tempo ranges", "r", "ranges")
	parse(fs, args)

	errs := []error{config.RequireFile("input-path", in), config.RequireValue("output-path", out)}
	if ranges != "" {
		errs = append(errs, config.RequireFile("ranges", ranges))
	}
	checkConfig(errs...)

	svc := openService()
	defer svc.Close()

	report, err := svc.Scrub(in, out, ranges)
	exitOnErr("Scrubbing failed", err)

	fmt.Printf("\n✅ Removed %s of %s rows outside their tempo range\n",
		humanize.Comma(int64(report.Removed)), humanize.Comma(int64(report.Total)))
	if report.Removed > 0 {
		fmt.Printf("   Removed tempos: mean %.1f, median %.1f, top 10 mean %.1f, bottom 10 mean %.1f\n",
			report.Mean, report.Median, report.Top10Mean, report.Bottom10Mean)
	}
}

func handleRecombine(ctx context.Context, args []string) {
	var in, out, sizes string
	fs := flag.NewFlagSet("recombine", flag.ExitOnError)
	stringFlag(fs, &in, "", "Input directory of genre tables", "i", "input-path")
	stringFlag(fs, &out, "", "Output directory for the slices", "o", "output-path")
	stringFlag(fs, &sizes, "", "Comma-separated slice sizes (default 1k,5k,10k,50k,100k)", "s", "sizes")
	parse(fs, args)

	checkConfig(config.RequireDir("input-path", in), config.RequireValue("output-path", out))
	var slices []dataset.SliceSize
	if sizes != "" {
		var err error
		slices, err = dataset.ParseSliceSizes(sizes)
		checkConfig(err)
	}

	svc := openService()
	defer svc.Close()

	stats, results, err := svc.Recombine(in, out, slices)
	exitOnErr("Recombination failed", err)

	fmt.Printf("\n✅ Recombined %s rows (%s incomplete, %s duplicates dropped)\n",
		humanize.Comma(int64(stats.Output)), humanize.Comma(int64(stats.Incomplete)), humanize.Comma(int64(stats.Duplicates)))
	for _, r := range results {
		fmt.Printf("   %s: %s rows\n", r.Path, humanize.Comma(int64(r.Rows)))
	}
}

func handleAnonymize(ctx context.Context, args []string) {
	var in, out string
	var length int
	fs := flag.NewFlagSet("anonymize", flag.ExitOnError)
	stringFlag(fs, &in, "", "Input directory containing subfolders of music files by genre", "i", "input-path")
	stringFlag(fs, &out, "", "Output csv file for the correspondence between old and new names", "o", "output-path")
	intFlag(fs, &length, 0, "Length of the anonymized name", "l", "length")
	parse(fs, args)

	checkConfig(config.RequireDir("input-path", in), config.RequirePositive("length", float64(length)))

	svc := openService()
	defer svc.Close()

	entries, err := svc.Anonymize(in, length, out)
	exitOnErr("Anonymization failed", err)
	fmt.Printf("\n✅ Renamed %s file(s)\n", humanize.Comma(int64(len(entries))))
}

func handlePrune(ctx context.Context, args []string) {
	var music, ref string
	var maxRemovals int
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	stringFlag(fs, &music, "", "Input directory containing subfolders of music files by genre", "m", "music")
	stringFlag(fs, &ref, "", "Reference correspondence csv (default: the catalog)", "c", "csv")
	intFlag(fs, &maxRemovals, -1, "Stop after this many deletions (negative: no limit)", "n", "max")
	parse(fs, args)

	errs := []error{config.RequireDir("music", music)}
	if ref != "" {
		errs = append(errs, config.RequireFile("csv", ref))
	}
	checkConfig(errs...)

	svc := openService()
	defer svc.Close()

	removed, err := svc.Prune(music, ref, maxRemovals)
	exitOnErr("Pruning failed", err)
	fmt.Printf("\n✅ Removed %s unlisted file(s)\n", humanize.Comma(int64(removed)))
}

func handleEqualize(ctx context.Context, args []string) {
	var in string
	var length int
	fs := flag.NewFlagSet("equalize", flag.ExitOnError)
	stringFlag(fs, &in, "", "Path to the base folder of the dataset", "i", "input-path")
	intFlag(fs, &length, 0, "Files per genre (default: the smallest genre)", "l", "length")
	parse(fs, args)

	checkConfig(config.RequireDir("input-path", in))

	svc := openService()
	defer svc.Close()

	results, err := svc.Equalize(in, length)
	exitOnErr("Equalization failed", err)
	fmt.Println("\n✅ Equalized genres:")
	for _, r := range results {
		fmt.Printf("   %-16s %d -> %d\n", r.Genre, r.Before, r.Before-r.Removed)
	}
}

func handleSpectrograms(ctx context.Context, args []string) {
	var in, out string
	rc := spectrogram.DefaultConfig()
	fs := flag.NewFlagSet("spectrograms", flag.ExitOnError)
	stringFlag(fs, &in, "", "Input directory containing subfolders of music files by genre", "i", "input-path")
	stringFlag(fs, &out, "", "Output directory for spectrograms", "o", "output-path")
	floatFlag(fs, &rc.Length, rc.Length, "Seconds of audio per spectrogram", "l", "length")
	intFlag(fs, &rc.Width, rc.Width, "Image width", "width")
	intFlag(fs, &rc.Height, rc.Height, "Image height", "height")
	parse(fs, args)

	checkConfig(
		config.RequireDir("input-path", in),
		config.RequireValue("output-path", out),
		config.RequirePositive("length", rc.Length),
	)
	rc.Workers = cfg.Workers

	svc := openService()
	defer svc.Close()

	images, err := svc.Spectrograms(ctx, in, out, rc)
	exitOnErr("Rendering failed", err)
	fmt.Printf("\n✅ Rendered %s spectrogram(s) into %s\n", humanize.Comma(int64(images)), out)
}

func handleSegment(ctx context.Context, args []string) {
	var in, out string
	sc := audio.DefaultSegmentConfig()
	fs := flag.NewFlagSet("segment", flag.ExitOnError)
	stringFlag(fs, &in, "", "Input directory of wav files", "i", "input-path")
	stringFlag(fs, &out, "", "Output directory for the pieces", "o", "output-path")
	floatFlag(fs, &sc.SegmentDuration, sc.SegmentDuration, "Seconds per piece", "d", "duration")
	floatFlag(fs, &sc.Threshold, sc.Threshold, "Fraction of the loudest frame counted as active", "t", "threshold")
	parse(fs, args)

	checkConfig(
		config.RequireDir("input-path", in),
		config.RequireValue("output-path", out),
		config.RequirePositive("duration", sc.SegmentDuration),
	)

	svc := openService()
	defer svc.Close()

	pieces, err := svc.Segment(in, out, sc)
	exitOnErr("Segmentation failed", err)
	fmt.Printf("\n✅ Wrote %s piece(s) into %s\n", humanize.Comma(int64(pieces)), out)
}

func handleDownload(ctx context.Context, args []string) {
	var playlists, out string
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	stringFlag(fs, &playlists, "", "File with playlist links, one per line", "p", "playlists")
	stringFlag(fs, &out, "", "Output folder", "o", "output")
	parse(fs, args)

	errs := []error{config.RequireFile("playlists", playlists), config.RequireValue("output", out)}
	if !cfg.Credentials.Valid() {
		errs = append(errs, download.ErrMissingCredentials)
	}
	checkConfig(errs...)
	links, err := download.ReadPlaylistFile(playlists)
	checkConfig(err)

	svc := openService()
	defer svc.Close()

	fmt.Println("📥 Downloading songs...")
	bars := newProgress()
	summary, err := svc.Download(ctx, links, out, func(done, total int) {
		bars.report("songs", done, total)
	})
	bars.wait()
	exitOnErr("Download failed", err)
	fmt.Printf("\n✅ Downloaded %s of %s song(s), %s failed\n",
		humanize.Comma(int64(summary.Downloaded)), humanize.Comma(int64(summary.Total)), humanize.Comma(int64(summary.Failed)))
}

func handleRuns(ctx context.Context, args []string) {
	var stage string
	var limit int
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	stringFlag(fs, &stage, "", "Only list runs of this stage", "stage")
	intFlag(fs, &limit, 20, "Maximum number of runs", "n", "limit")
	parse(fs, args)

	svc := openService()
	defer svc.Close()

	runs, err := svc.Runs(stage, limit)
	exitOnErr("Failed to list runs", err)
	if len(runs) == 0 {
		fmt.Println("\n📭 No runs recorded")
		return
	}

	fmt.Printf("\n📚 %d run(s):\n\n", len(runs))
	for _, r := range runs {
		fmt.Printf("%s  %-12s %-7s %s\n", r.ID[:8], r.Stage, r.Status, humanize.Time(r.StartedAt))
		fmt.Printf("   %s -> %s\n", r.Input, r.Output)
		fmt.Printf("   in %s, out %s, removed %s\n",
			humanize.Comma(int64(r.RowsIn)), humanize.Comma(int64(r.RowsOut)), humanize.Comma(int64(r.Removed)))
		if r.Error != "" {
			fmt.Printf("   error: %s\n", r.Error)
		}
		fmt.Println()
	}
}
