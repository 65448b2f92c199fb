package download

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nlouis56/vroume/pkg/logger"
	"github.com/nlouis56/vroume/pkg/models"
)

type fakeSearcher struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]SearchResult
	fails   map[string]int // failures before success
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[query]++
	if f.calls[query] <= f.fails[query] {
		return SearchResult{}, errors.New("network hiccup")
	}
	r, ok := f.results[query]
	if !ok {
		return SearchResult{}, ErrNoMatch
	}
	return r, nil
}

// fakeAudio writes an empty file where yt-dlp would put the wav
type fakeAudio struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeAudio) DownloadAudio(ctx context.Context, videoURL, outputTemplate string) error {
	f.mu.Lock()
	f.urls = append(f.urls, videoURL)
	f.mu.Unlock()
	return os.WriteFile(strings.Replace(outputTemplate, ".%(ext)s", ".wav", 1), []byte("RIFF"), 0o644)
}

func TestDurationMatches(t *testing.T) {
	tests := []struct {
		track, video float64
		want         bool
	}{
		{200, 200, true},
		{200, 300, true},
		{200, 100, true},
		{200, 301, false},
		{200, 99, false},
	}
	for _, tt := range tests {
		if got := DurationMatches(tt.track, tt.video, 0.5); got != tt.want {
			t.Errorf("DurationMatches(%v, %v) = %v, want %v", tt.track, tt.video, got, tt.want)
		}
	}
}

func TestSongFileName(t *testing.T) {
	s := models.Song{Title: "Left/Right - Remix?", Artist: "AC/DC"}
	if got := SongFileName(s); got != "Left_Right _ Remix-AC_DC" {
		t.Errorf("SongFileName = %q", got)
	}
}

func TestFetchRetriesSearch(t *testing.T) {
	dir := t.TempDir()
	song := models.Song{Title: "Song", Artist: "Band", Genre: "rock", Duration: 200}
	search := &fakeSearcher{
		results: map[string]SearchResult{"Song Band": {ID: "vid1", Duration: 210}},
		fails:   map[string]int{"Song Band": 2},
	}
	audio := &fakeAudio{}
	f := &Fetcher{Searcher: search, Downloader: audio, OutputDir: dir, Attempts: 3, MaxDurationVariation: 0.5}

	path, err := f.Fetch(context.Background(), song)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if want := filepath.Join(dir, "rock", "Song-Band.wav"); path != want {
		t.Errorf("Fetch returned %s, want %s", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Downloaded file missing: %v", err)
	}
	if search.calls["Song Band"] != 3 {
		t.Errorf("Expected 3 search calls, got %d", search.calls["Song Band"])
	}
	if len(audio.urls) != 1 || !strings.HasSuffix(audio.urls[0], "v=vid1") {
		t.Errorf("Unexpected download URLs %v", audio.urls)
	}
}

func TestFetchGivesUpAfterAttempts(t *testing.T) {
	search := &fakeSearcher{fails: map[string]int{"Song Band": 5}}
	f := &Fetcher{Searcher: search, Downloader: &fakeAudio{}, OutputDir: t.TempDir(), Attempts: 3, MaxDurationVariation: 0.5}

	_, err := f.Fetch(context.Background(), models.Song{Title: "Song", Artist: "Band", Genre: "rock", Duration: 200})
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("Expected ErrNoMatch, got %v", err)
	}
	if search.calls["Song Band"] != 3 {
		t.Errorf("Expected 3 attempts, got %d", search.calls["Song Band"])
	}
}

func TestFetchRejectsDurationMismatch(t *testing.T) {
	search := &fakeSearcher{results: map[string]SearchResult{"Song Band": {ID: "long", Duration: 3600}}}
	audio := &fakeAudio{}
	f := &Fetcher{Searcher: search, Downloader: audio, OutputDir: t.TempDir(), Attempts: 3, MaxDurationVariation: 0.5}

	_, err := f.Fetch(context.Background(), models.Song{Title: "Song", Artist: "Band", Genre: "rock", Duration: 200})
	if !errors.Is(err, ErrDurationMismatch) {
		t.Errorf("Expected ErrDurationMismatch, got %v", err)
	}
	if len(audio.urls) != 0 {
		t.Error("Mismatched video should not be downloaded")
	}
}

func TestDropCrossGenreDuplicates(t *testing.T) {
	songs := []models.Song{
		{Title: "A", Genre: "pop"},
		{Title: "A", Genre: "rock"},
		{Title: "A", Genre: "metal"},
		{Title: "B", Genre: "pop"},
		{Title: "A", Genre: "house"},
	}
	kept, dropped := DropCrossGenreDuplicates(songs)
	if dropped != 2 || len(kept) != 3 {
		t.Fatalf("Expected 3 kept and 2 dropped, got %d and %d", len(kept), dropped)
	}
	if kept[1].Genre != "rock" || kept[2].Title != "B" {
		t.Errorf("Unexpected kept songs %+v", kept)
	}
}

func TestShuffleSongsIsSeededPermutation(t *testing.T) {
	songs := make([]models.Song, 20)
	for i := range songs {
		songs[i] = models.Song{Title: fmt.Sprintf("t%02d", i), Genre: "pop"}
	}
	a := append([]models.Song(nil), songs...)
	b := append([]models.Song(nil), songs...)
	ShuffleSongs(a, rand.New(rand.NewPCG(3, 4)))
	ShuffleSongs(b, rand.New(rand.NewPCG(3, 4)))

	moved := false
	seen := make(map[string]bool)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Same seed gave different orders at %d", i)
		}
		if a[i] != songs[i] {
			moved = true
		}
		seen[a[i].Title] = true
	}
	if !moved {
		t.Error("Expected the order to change")
	}
	if len(seen) != len(songs) {
		t.Errorf("Expected %d distinct songs, got %d", len(songs), len(seen))
	}
}

func TestDownloaderRunSkipsFailures(t *testing.T) {
	search := &fakeSearcher{results: map[string]SearchResult{
		"One X":   {ID: "1", Duration: 100},
		"Three X": {ID: "3", Duration: 100},
	}}
	f := &Fetcher{Searcher: search, Downloader: &fakeAudio{}, OutputDir: t.TempDir(), Attempts: 1, MaxDurationVariation: 0.5}
	var progress int
	var mu sync.Mutex
	d := &Downloader{Fetcher: f, Workers: 2, Log: logger.Discard(), OnProgress: func(done, total int) {
		mu.Lock()
		progress = max(progress, done)
		mu.Unlock()
	}}

	songs := []models.Song{
		{Title: "One", Artist: "X", Genre: "pop", Duration: 100},
		{Title: "Two", Artist: "X", Genre: "pop", Duration: 100},
		{Title: "Three", Artist: "X", Genre: "rock", Duration: 100},
	}
	summary, err := d.Run(context.Background(), songs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Total != 3 || summary.Downloaded != 2 || summary.Failed != 1 {
		t.Errorf("Unexpected summary %+v", summary)
	}
	if progress != 3 {
		t.Errorf("Expected progress to reach 3, got %d", progress)
	}
}

func TestParseSearchOutput(t *testing.T) {
	out := "WARNING: something\n{\"id\":\"abc\",\"title\":\"T\",\"duration\":215}\n"
	r, err := parseSearchOutput(out)
	if err != nil {
		t.Fatalf("parseSearchOutput failed: %v", err)
	}
	if r.ID != "abc" || r.Duration != 215 {
		t.Errorf("Unexpected result %+v", r)
	}
	r, err = parseSearchOutput(`{"title":"T","webpage_url":"https://youtu.be/xyz"}`)
	if err != nil || r.ID != "xyz" {
		t.Errorf("Expected ID from page URL, got %+v (%v)", r, err)
	}
	if _, err := parseSearchOutput(`{"title":"T"}`); err == nil {
		t.Error("Expected error without any video ID")
	}
	if _, err := parseSearchOutput(""); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Expected ErrNoMatch for empty output, got %v", err)
	}
}

func TestReadPlaylistFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlists.txt")
	content := "# rock\nhttps://open.spotify.com/playlist/abc\n\n  spotify:playlist:def  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	links, err := ReadPlaylistFile(path)
	if err != nil {
		t.Fatalf("ReadPlaylistFile failed: %v", err)
	}
	if len(links) != 2 || links[1] != "spotify:playlist:def" {
		t.Errorf("Unexpected links %v", links)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	os.WriteFile(empty, []byte("# nothing\n"), 0o644)
	if _, err := ReadPlaylistFile(empty); err == nil {
		t.Error("Expected error for a file without links")
	}
}
