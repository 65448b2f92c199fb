package download

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nlouis56/vroume/pkg/logger"
	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

const (
	DefaultAttempts             = 3
	DefaultMaxDurationVariation = 0.5
)

var (
	ErrNoMatch          = errors.New("no matching video found")
	ErrDurationMismatch = errors.New("video duration too different from track")
)

// Fetcher finds and downloads the audio of one song.
type Fetcher struct {
	Searcher   Searcher
	Downloader AudioDownloader
	OutputDir  string

	// Attempts bounds search retries after a failed search.
	Attempts int
	// MaxDurationVariation is the allowed relative gap between the track
	// and the video durations.
	MaxDurationVariation float64
}

// SongFileName is "<title>-<artist>" made safe for a file system. Dashes in
// the title become underscores so the separator stays unambiguous.
func SongFileName(s models.Song) string {
	title := strings.ReplaceAll(utils.SanitizeName(s.Title), "-", "_")
	return title + "-" + utils.SanitizeName(s.Artist)
}

// SongPath is where a song's WAV file lands.
func (f *Fetcher) SongPath(s models.Song) string {
	return filepath.Join(f.OutputDir, utils.SanitizeName(s.Genre), SongFileName(s)+".wav")
}

// DurationMatches reports whether a video length is close enough to the
// track length.
func DurationMatches(track, video, maxVariation float64) bool {
	return math.Abs(track-video) <= track*maxVariation
}

func (f *Fetcher) find(ctx context.Context, s models.Song) (SearchResult, error) {
	attempts := max(1, f.Attempts)
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return SearchResult{}, err
		}
		hit, err := f.Searcher.Search(ctx, s.Title+" "+s.Artist)
		if err != nil {
			lastErr = err
			continue
		}
		// A wrong duration means the search found something else; retrying
		// the same query would find it again.
		if !DurationMatches(s.Duration, hit.Duration, f.MaxDurationVariation) {
			return hit, fmt.Errorf("%w: %.0fs vs %.0fs", ErrDurationMismatch, hit.Duration, s.Duration)
		}
		return hit, nil
	}
	if lastErr == nil {
		lastErr = ErrNoMatch
	}
	return SearchResult{}, fmt.Errorf("%w after %d attempts: %v", ErrNoMatch, attempts, lastErr)
}

// Fetch searches for a song and downloads it, returning the WAV path.
func (f *Fetcher) Fetch(ctx context.Context, s models.Song) (string, error) {
	hit, err := f.find(ctx, s)
	if err != nil {
		return "", err
	}
	out := f.SongPath(s)
	if err := utils.MakeDir(filepath.Dir(out)); err != nil {
		return "", err
	}
	template := strings.TrimSuffix(out, ".wav") + ".%(ext)s"
	if err := f.Downloader.DownloadAudio(ctx, utils.WatchURL(hit.ID), template); err != nil {
		return "", err
	}
	return out, nil
}

// DropCrossGenreDuplicates keeps a title in at most two genres: the first
// two playlists it appears in. Returns the kept songs and the drop count.
func DropCrossGenreDuplicates(songs []models.Song) ([]models.Song, int) {
	genres := make(map[string]map[string]bool)
	kept := make([]models.Song, 0, len(songs))
	for _, s := range songs {
		seen, ok := genres[s.Title]
		switch {
		case !ok:
			genres[s.Title] = map[string]bool{s.Genre: true}
			kept = append(kept, s)
		case len(seen) == 1:
			seen[s.Genre] = true
			kept = append(kept, s)
		}
	}
	return kept, len(songs) - len(kept)
}

// ShuffleSongs randomizes the download order in place so that no playlist
// is fetched as one contiguous block.
func ShuffleSongs(songs []models.Song, rng *rand.Rand) {
	rng.Shuffle(len(songs), func(i, j int) { songs[i], songs[j] = songs[j], songs[i] })
}

// Summary counts a download run.
type Summary struct {
	Total      int
	Downloaded int
	Failed     int
}

// Downloader fetches many songs concurrently. Songs that fail are logged and
// skipped.
type Downloader struct {
	Fetcher    *Fetcher
	Workers    int
	Log        *logger.Logger
	OnProgress func(done, total int)
}

func (d *Downloader) Run(ctx context.Context, songs []models.Song) (Summary, error) {
	log := d.Log
	if log == nil {
		log = logger.GetLogger()
	}
	summary := Summary{Total: len(songs)}
	var downloaded, failed, done atomic.Int32

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, d.Workers))
	for _, song := range songs {
		g.Go(func() error {
			path, err := d.Fetcher.Fetch(ctx, song)
			switch {
			case err != nil && ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				failed.Add(1)
				log.Warnf("Could not download %s: %v", song, err)
			default:
				downloaded.Add(1)
				log.Debugf("Downloaded %s to %s", song, path)
			}
			if d.OnProgress != nil {
				d.OnProgress(int(done.Add(1)), len(songs))
			}
			return nil
		})
	}
	err := g.Wait()
	summary.Downloaded = int(downloaded.Load())
	summary.Failed = int(failed.Load())
	return summary, err
}
