package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nlouis56/vroume/internal/audio"
	"github.com/nlouis56/vroume/internal/dataset"
	"github.com/nlouis56/vroume/internal/download"
	"github.com/nlouis56/vroume/internal/features"
	"github.com/nlouis56/vroume/internal/library"
	"github.com/nlouis56/vroume/internal/pipeline"
	"github.com/nlouis56/vroume/internal/spectrogram"
	"github.com/nlouis56/vroume/internal/storage"
	"github.com/nlouis56/vroume/pkg/logger"
	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

// Stage names recorded in the run catalog.
const (
	StageExtract      = "extract"
	StageClean        = "clean"
	StageDedupe       = "dedupe"
	StageScrub        = "scrub"
	StageRecombine    = "recombine"
	StageAnonymize    = "anonymize"
	StagePrune        = "prune"
	StageEqualize     = "equalize"
	StageSpectrograms = "spectrograms"
	StageSegment      = "segment"
	StageDownload     = "download"
)

// CorrespondenceFile is the mapping written next to an anonymized library.
const CorrespondenceFile = "correspondence.csv"

// PlaylistSource lists the songs of a playlist link.
type PlaylistSource interface {
	PlaylistSongs(ctx context.Context, link string) ([]models.Song, error)
}

// Service runs the pipeline stages and records each invocation in the
// catalog.
type Service struct {
	cfg     *Config
	db      *storage.DBClient
	ownsDB  bool
	log     *logger.Logger
	extract *features.Extractor
}

func New(opts ...Option) (*Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	s := &Service{cfg: cfg, log: cfg.Logger, db: cfg.Catalog}
	if s.db == nil {
		db, err := storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		s.db = db
		s.ownsDB = true
	}
	s.extract = features.NewExtractor(s.log)
	return s, nil
}

func (s *Service) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// track wraps one stage invocation in a catalog run. Catalog failures are
// logged; they never fail the stage itself.
func (s *Service) track(stage, input, output string, fn func() (storage.RunStats, error)) error {
	log := s.log.With("stage", stage)
	id, err := s.db.StartRun(stage, input, output)
	if err != nil {
		log.Warnf("Could not record run: %v", err)
	}
	stats, runErr := fn()
	if id != "" {
		if err := s.db.FinishRun(id, stats, runErr); err != nil {
			log.Warnf("Could not finish run %s: %v", id, err)
		}
	}
	log.Debugf("in=%d out=%d removed=%d err=%v", stats.RowsIn, stats.RowsOut, stats.Removed, runErr)
	return runErr
}

// Extract runs the feature extractor over a genre library and writes one
// table per genre into outputDir.
func (s *Service) Extract(ctx context.Context, inputDir, outputDir string, duration float64, progress pipeline.ProgressFunc) ([]pipeline.GenreResult, error) {
	if duration <= 0 {
		return nil, audio.ErrInvalidDuration
	}
	proc := pipeline.NewProcessor(s.extract,
		pipeline.WithWorkers(s.cfg.Workers),
		pipeline.WithLogger(s.log),
		pipeline.WithProgress(progress),
	)

	var results []pipeline.GenreResult
	err := s.track(StageExtract, inputDir, outputDir, func() (storage.RunStats, error) {
		var err error
		results, err = proc.ProcessLibrary(ctx, inputDir, outputDir, duration)
		var stats storage.RunStats
		for _, r := range results {
			stats.RowsIn += r.Stats.Files
			stats.RowsOut += r.Stats.Rows
			stats.Removed += r.Stats.Rejected
		}
		return stats, err
	})
	return results, err
}

// Clean writes a cleaned copy of every CSV in dir.
func (s *Service) Clean(dir string) ([]dataset.CleanReport, error) {
	var reports []dataset.CleanReport
	err := s.track(StageClean, dir, dir, func() (storage.RunStats, error) {
		var err error
		reports, err = dataset.CleanDir(dir)
		var stats storage.RunStats
		for _, r := range reports {
			stats.RowsIn += r.Lines
			stats.RowsOut += r.Written
			stats.Removed += r.Blank + r.Zeroed
			s.log.Infof("%s: %d lines, %d blank, %d zeroed", r.Input, r.Lines, r.Blank, r.Zeroed)
		}
		return stats, err
	})
	return reports, err
}

// Dedupe removes every row whose key is duplicated and overwrites path.
func (s *Service) Dedupe(path, key string) (int, error) {
	var removed int
	err := s.track(StageDedupe, path, path, func() (storage.RunStats, error) {
		var err error
		removed, err = dataset.RemoveDuplicatesFile(path, key)
		return storage.RunStats{Removed: removed}, err
	})
	return removed, err
}

// Scrub filters inPath by tempo range. An empty rangesPath uses the
// built-in ranges.
func (s *Service) Scrub(inPath, outPath, rangesPath string) (dataset.ScrubReport, error) {
	ranges := dataset.DefaultTempoRanges()
	if rangesPath != "" {
		var err error
		if ranges, err = dataset.LoadTempoRanges(rangesPath); err != nil {
			return dataset.ScrubReport{}, err
		}
	}

	var report dataset.ScrubReport
	err := s.track(StageScrub, inPath, outPath, func() (storage.RunStats, error) {
		var err error
		report, err = dataset.ScrubFile(inPath, outPath, ranges)
		return storage.RunStats{RowsIn: report.Total, RowsOut: report.Total - report.Removed, Removed: report.Removed}, err
	})
	return report, err
}

// Recombine merges every genre table of inputDir and writes one stratified
// slice per size into outputDir.
func (s *Service) Recombine(inputDir, outputDir string, sizes []dataset.SliceSize) (dataset.RecombineStats, []dataset.SliceResult, error) {
	if len(sizes) == 0 {
		sizes = dataset.DefaultSliceSizes()
	}
	var (
		stats   dataset.RecombineStats
		results []dataset.SliceResult
	)
	err := s.track(StageRecombine, inputDir, outputDir, func() (storage.RunStats, error) {
		tables, names, err := dataset.ReadDir(inputDir)
		if err != nil {
			return storage.RunStats{}, err
		}
		s.log.Infof("Recombining %d tables: %v", len(tables), names)

		merged, st, err := dataset.Recombine(tables, s.cfg.Rand)
		stats = st
		run := storage.RunStats{RowsIn: st.Input, RowsOut: st.Output, Removed: st.Incomplete + st.Duplicates}
		if err != nil {
			return run, err
		}
		results, err = dataset.WriteSlices(outputDir, merged, sizes, s.cfg.Rand)
		for _, r := range results {
			s.log.Infof("Wrote %s (%d rows)", r.Path, r.Rows)
		}
		return run, err
	})
	return stats, results, err
}

// Anonymize renames the library files, saves the mapping in the catalog and
// writes it to correspondencePath (default <dir>/correspondence.csv).
func (s *Service) Anonymize(dir string, nameLength int, correspondencePath string) ([]models.CorrespondenceEntry, error) {
	if correspondencePath == "" {
		correspondencePath = filepath.Join(dir, CorrespondenceFile)
	}
	var entries []models.CorrespondenceEntry
	err := s.track(StageAnonymize, dir, correspondencePath, func() (storage.RunStats, error) {
		taken, err := s.db.NewNames()
		if err != nil {
			return storage.RunStats{}, err
		}
		entries, err = library.New(dir, s.cfg.Rand, s.log).Anonymize(nameLength, taken)
		stats := storage.RunStats{RowsIn: len(entries), RowsOut: len(entries)}
		// whatever was renamed must be recorded, even after a failure
		if len(entries) > 0 {
			if serr := s.db.SaveCorrespondence(entries); serr != nil {
				err = errors.Join(err, serr)
			}
			if werr := library.WriteCorrespondence(correspondencePath, entries); werr != nil {
				err = errors.Join(err, werr)
			}
		}
		return stats, err
	})
	return entries, err
}

// Prune deletes library files missing from the correspondence table at
// referencePath. An empty referencePath uses the catalog.
func (s *Service) Prune(dir, referencePath string, maxRemovals int) (int, error) {
	var removed int
	input := referencePath
	if input == "" {
		input = "catalog"
	}
	err := s.track(StagePrune, input, dir, func() (storage.RunStats, error) {
		var (
			keep map[string]bool
			err  error
		)
		if referencePath == "" {
			keep, err = s.db.NewNames()
		} else {
			keep, err = referenceNames(referencePath)
		}
		if err != nil {
			return storage.RunStats{}, err
		}
		removed, err = library.New(dir, s.cfg.Rand, s.log).PruneUnlisted(keep, maxRemovals)
		return storage.RunStats{RowsIn: len(keep), Removed: removed}, err
	})
	return removed, err
}

func referenceNames(path string) (map[string]bool, error) {
	entries, err := library.ReadCorrespondence(path)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		keep[e.NewName] = true
	}
	return keep, nil
}

// Equalize trims every genre folder of dir to length files.
func (s *Service) Equalize(dir string, length int) ([]library.EqualizeResult, error) {
	var results []library.EqualizeResult
	err := s.track(StageEqualize, dir, dir, func() (storage.RunStats, error) {
		var err error
		results, err = library.New(dir, s.cfg.Rand, s.log).Equalize(length)
		var stats storage.RunStats
		for _, r := range results {
			stats.RowsIn += r.Before
			stats.RowsOut += r.Before - r.Removed
			stats.Removed += r.Removed
		}
		return stats, err
	})
	return results, err
}

// Spectrograms renders every genre folder of inputDir.
func (s *Service) Spectrograms(ctx context.Context, inputDir, outputDir string, cfg spectrogram.Config) (int, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = s.cfg.Workers
	}
	var images int
	err := s.track(StageSpectrograms, inputDir, outputDir, func() (storage.RunStats, error) {
		var err error
		images, err = spectrogram.NewRenderer(cfg, s.log).RenderLibrary(ctx, inputDir, outputDir)
		return storage.RunStats{RowsOut: images}, err
	})
	return images, err
}

// Segment cuts the active parts of every wav file in inputDir into fixed
// pieces under outputDir. Unreadable files are skipped.
func (s *Service) Segment(inputDir, outputDir string, cfg audio.SegmentConfig) (int, error) {
	var pieces int
	err := s.track(StageSegment, inputDir, outputDir, func() (storage.RunStats, error) {
		files, err := utils.ListFiles(inputDir, ".wav")
		if err != nil {
			return storage.RunStats{}, err
		}
		failed := 0
		for _, path := range files {
			written, err := audio.ExtractActiveParts(path, outputDir, cfg)
			pieces += len(written)
			if err != nil {
				if errors.Is(err, audio.ErrInvalidDuration) {
					return storage.RunStats{RowsIn: len(files), RowsOut: pieces}, err
				}
				failed++
				s.log.Warnf("Skipping %s: %v", path, err)
			}
		}
		return storage.RunStats{RowsIn: len(files), RowsOut: pieces, Removed: failed}, nil
	})
	return pieces, err
}

// Download fetches every song of the playlist links into outputDir, one
// folder per playlist.
func (s *Service) Download(ctx context.Context, links []string, outputDir string, onProgress func(done, total int)) (download.Summary, error) {
	var summary download.Summary
	err := s.track(StageDownload, fmt.Sprint(links), outputDir, func() (storage.RunStats, error) {
		source, err := s.playlists()
		if err != nil {
			return storage.RunStats{}, err
		}
		var songs []models.Song
		for _, link := range links {
			batch, err := source.PlaylistSongs(ctx, link)
			if err != nil {
				return storage.RunStats{}, fmt.Errorf("playlist %s: %w", link, err)
			}
			s.log.Infof("%d songs in %s", len(batch), link)
			songs = append(songs, batch...)
		}
		songs, dropped := download.DropCrossGenreDuplicates(songs)
		if dropped > 0 {
			s.log.Infof("Dropped %d songs present in too many genres", dropped)
		}
		download.ShuffleSongs(songs, s.cfg.Rand)

		searcher, backend := s.cfg.Searcher, s.cfg.Audio
		if searcher == nil || backend == nil {
			y := &download.YtDlp{FFmpegLocation: s.cfg.FFmpegLocation}
			searcher, backend = y, y
		}
		d := &download.Downloader{
			Fetcher: &download.Fetcher{
				Searcher:             searcher,
				Downloader:           backend,
				OutputDir:            outputDir,
				Attempts:             download.DefaultAttempts,
				MaxDurationVariation: download.DefaultMaxDurationVariation,
			},
			Workers:    s.cfg.Workers,
			Log:        s.log,
			OnProgress: onProgress,
		}
		summary, err = d.Run(ctx, songs)
		return storage.RunStats{RowsIn: summary.Total, RowsOut: summary.Downloaded, Removed: summary.Failed + dropped}, err
	})
	return summary, err
}

func (s *Service) playlists() (PlaylistSource, error) {
	if s.cfg.Playlists != nil {
		return s.cfg.Playlists, nil
	}
	client, err := download.NewPlaylistClient(s.cfg.Credentials)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Runs lists recorded stage runs, newest first. An empty stage lists all.
func (s *Service) Runs(stage string, limit int) ([]storage.Run, error) {
	return s.db.ListRuns(stage, limit)
}

// Correspondence lists the catalogued anonymized names, optionally for one
// genre.
func (s *Service) Correspondence(genre string) ([]models.CorrespondenceEntry, error) {
	return s.db.ListCorrespondence(genre)
}
