package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nlouis56/vroume/internal/dataset"
	"github.com/nlouis56/vroume/pkg/logger"
	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

// FileExtractor turns one audio file into feature rows. It reports failure
// by returning no rows.
type FileExtractor interface {
	ExtractFile(path string, duration float64, genre string) []models.FeatureRow
}

// ProgressFunc is called once per finished file.
type ProgressFunc func(genre string, done, total int)

// FolderStats counts the outcome of one folder.
type FolderStats struct {
	Files       int
	FailedFiles int
	Rows        int
	Rejected    int
}

// Processor fans file extraction out over a bounded pool of goroutines.
type Processor struct {
	extractor  FileExtractor
	workers    int
	log        *logger.Logger
	onProgress ProgressFunc
}

type Option func(*Processor)

func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Processor) { p.log = l }
}

func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) { p.onProgress = fn }
}

func NewProcessor(ex FileExtractor, opts ...Option) *Processor {
	p := &Processor{
		extractor: ex,
		workers:   runtime.NumCPU(),
		log:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type batch struct {
	path string
	rows []models.FeatureRow
}

// ProcessFolder extracts every file and returns the validated rows of the
// folder, in completion order, each labelled with the trimmed genre.
func (p *Processor) ProcessFolder(ctx context.Context, files []string, duration float64, genre string) ([]models.FeatureRow, FolderStats, error) {
	genre = strings.TrimSpace(genre)
	stats := FolderStats{Files: len(files)}

	results := make(chan batch)
	collected := make(chan []models.FeatureRow, 1)
	go func() {
		var table []models.FeatureRow
		done := 0
		for b := range results {
			done++
			if len(b.rows) == 0 {
				stats.FailedFiles++
			}
			kept, rejected := models.ValidateRows(b.rows)
			if len(rejected) > 0 {
				p.log.Debugf("Rejected %d frames of %s with zero values", len(rejected), b.path)
			}
			stats.Rejected += len(rejected)
			for i := range kept {
				kept[i].Genre = genre
			}
			table = append(table, kept...)
			if p.onProgress != nil {
				p.onProgress(genre, done, len(files))
			}
		}
		collected <- table
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows := p.extractor.ExtractFile(path, duration, genre)
			select {
			case results <- batch{path: path, rows: rows}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	close(results)
	table := <-collected
	stats.Rows = len(table)
	return table, stats, err
}

// GenreResult describes one written genre table.
type GenreResult struct {
	Genre  string
	Output string
	Stats  FolderStats
}

// ProcessLibrary extracts every genre subfolder of inputDir and writes one
// <genre>.csv per folder into outputDir. Write errors abort the run.
func (p *Processor) ProcessLibrary(ctx context.Context, inputDir, outputDir string, duration float64) ([]GenreResult, error) {
	genres, err := utils.ListSubdirs(inputDir)
	if err != nil {
		return nil, err
	}
	if len(genres) == 0 {
		return nil, fmt.Errorf("no genre subfolders in %s", inputDir)
	}
	if err := utils.MakeDir(outputDir); err != nil {
		return nil, err
	}

	var results []GenreResult
	for _, genre := range genres {
		files, err := utils.ListFiles(filepath.Join(inputDir, genre), ".wav")
		if err != nil {
			return results, err
		}
		if len(files) == 0 {
			p.log.Warnf("No wav files in %s, skipping", genre)
			continue
		}
		p.log.Infof("Processing %d files of %s", len(files), genre)

		rows, stats, err := p.ProcessFolder(ctx, files, duration, genre)
		if err != nil {
			return results, err
		}
		out := filepath.Join(outputDir, genre+".csv")
		if err := dataset.WriteCSV(out, dataset.FromFeatureRows(rows)); err != nil {
			return results, fmt.Errorf("writing %s: %w", out, err)
		}
		p.log.Infof("Wrote %d rows for %s (%d rejected, %d failed files)", stats.Rows, genre, stats.Rejected, stats.FailedFiles)
		results = append(results, GenreResult{Genre: genre, Output: out, Stats: stats})
	}
	return results, nil
}
