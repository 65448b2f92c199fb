package download

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/nlouis56/vroume/pkg/utils"
)

// SearchResult is the first hit of a video search.
type SearchResult struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	URL      string  `json:"webpage_url"`
}

// Searcher finds the best matching video for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) (SearchResult, error)
}

// AudioDownloader fetches the audio of a video as WAV following an output
// template ("<dir>/<name>.%(ext)s").
type AudioDownloader interface {
	DownloadAudio(ctx context.Context, videoURL, outputTemplate string) error
}

// YtDlp drives the yt-dlp binary for both search and download.
type YtDlp struct {
	FFmpegLocation string
}

func (y *YtDlp) Search(ctx context.Context, query string) (SearchResult, error) {
	res, err := ytdlp.New().
		NoPlaylist().
		SkipDownload().
		DumpJSON().
		Quiet().
		NoWarnings().
		Run(ctx, "ytsearch1:"+query)
	if err != nil {
		return SearchResult{}, fmt.Errorf("yt-dlp search failed: %w", err)
	}
	return parseSearchOutput(res.Stdout)
}

// parseSearchOutput reads the first JSON document of yt-dlp's output.
func parseSearchOutput(stdout string) (SearchResult, error) {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var r SearchResult
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return r, fmt.Errorf("failed to parse yt-dlp JSON: %w", err)
		}
		if strings.TrimSpace(r.ID) == "" && r.URL != "" {
			// flat extraction can leave only the page URL
			r.ID, _ = utils.ExtractYouTubeID(r.URL)
		}
		if strings.TrimSpace(r.ID) == "" {
			return r, errors.New("missing video ID in yt-dlp output")
		}
		return r, nil
	}
	return SearchResult{}, ErrNoMatch
}

func (y *YtDlp) DownloadAudio(ctx context.Context, videoURL, outputTemplate string) error {
	cmd := ytdlp.New().
		NoPlaylist().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("wav").
		Output(outputTemplate).
		Quiet().
		NoWarnings()
	if y.FFmpegLocation != "" {
		cmd = cmd.FFmpegLocation(y.FFmpegLocation)
	}
	if _, err := cmd.Run(ctx, videoURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("yt-dlp download failed: %w", err)
	}
	return nil
}
