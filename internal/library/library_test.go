package library

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/nlouis56/vroume/pkg/logger"
	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

// makeLibrary creates root/<genre>/<genre>-<i>.wav files
func makeLibrary(t *testing.T, counts map[string]int) string {
	t.Helper()
	root := t.TempDir()
	for genre, n := range counts {
		dir := filepath.Join(root, genre)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < n; i++ {
			path := filepath.Join(dir, fmt.Sprintf("%s-%d.wav", genre, i))
			if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func newTestLibrary(root string) *Library {
	return New(root, rand.New(rand.NewPCG(7, 7)), logger.Discard())
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	files, err := utils.ListFiles(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	return len(files)
}

func TestAnonymizeIsBijective(t *testing.T) {
	root := makeLibrary(t, map[string]int{"pop": 5, "rock": 4})
	lib := newTestLibrary(root)

	entries, err := lib.Anonymize(6, map[string]bool{})
	if err != nil {
		t.Fatalf("Anonymize failed: %v", err)
	}
	if len(entries) != 9 {
		t.Fatalf("Expected 9 entries, got %d", len(entries))
	}

	pattern := regexp.MustCompile(`^[A-Za-z0-9]{6}\.wav$`)
	newNames := make(map[string]bool)
	oldNames := make(map[string]bool)
	for _, e := range entries {
		if !pattern.MatchString(e.NewName) {
			t.Errorf("Unexpected anonymized name %q", e.NewName)
		}
		if newNames[e.NewName] || oldNames[e.OldName] {
			t.Errorf("Mapping is not one-to-one at %+v", e)
		}
		newNames[e.NewName] = true
		oldNames[e.OldName] = true
		if _, err := os.Stat(filepath.Join(root, e.Genre, e.NewName)); err != nil {
			t.Errorf("Renamed file missing: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, e.Genre, e.OldName)); !os.IsNotExist(err) {
			t.Errorf("Old file %s still present", e.OldName)
		}
	}
}

func TestAnonymizeAvoidsTakenNames(t *testing.T) {
	root := makeLibrary(t, map[string]int{"pop": 3})
	lib := newTestLibrary(root)

	// Length 1 leaves 62 names; take all but three
	taken := make(map[string]bool)
	for _, c := range nameCharset[3:] {
		taken[string(c)+".wav"] = true
	}
	entries, err := lib.Anonymize(1, taken)
	if err != nil {
		t.Fatalf("Anonymize failed: %v", err)
	}
	for _, e := range entries {
		if taken[e.NewName] {
			t.Errorf("Reused taken name %s", e.NewName)
		}
	}
}

func TestAnonymizeNameSpaceExhausted(t *testing.T) {
	root := makeLibrary(t, map[string]int{"pop": 1})
	taken := make(map[string]bool)
	for _, c := range nameCharset {
		taken[string(c)+".wav"] = true
	}
	if _, err := newTestLibrary(root).Anonymize(1, taken); !errors.Is(err, ErrNameSpaceSmall) {
		t.Errorf("Expected ErrNameSpaceSmall, got %v", err)
	}
}

// writeNamed creates one file per name under root/genre.
func writeNamed(t *testing.T, root, genre string, names []string) {
	t.Helper()
	dir := filepath.Join(root, genre)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAnonymizeNeverOverwritesLibraryFiles(t *testing.T) {
	root := t.TempDir()
	var names []string
	for _, c := range nameCharset[:30] {
		names = append(names, string(c)+".wav")
	}
	writeNamed(t, root, "pop", names)

	entries, err := newTestLibrary(root).Anonymize(1, map[string]bool{})
	if err != nil {
		t.Fatalf("Anonymize failed: %v", err)
	}
	if len(entries) != 30 {
		t.Fatalf("Expected 30 entries, got %d", len(entries))
	}
	if n := countFiles(t, filepath.Join(root, "pop")); n != 30 {
		t.Errorf("Expected 30 files after anonymizing, got %d", n)
	}

	old := make(map[string]bool, len(names))
	for _, n := range names {
		old[n] = true
	}
	contents := make(map[string]bool)
	for _, e := range entries {
		if old[e.NewName] {
			t.Errorf("New name %s was an existing file", e.NewName)
		}
		data, err := os.ReadFile(filepath.Join(root, "pop", e.NewName))
		if err != nil {
			t.Fatalf("Renamed file missing: %v", err)
		}
		if string(data) != e.OldName {
			t.Errorf("File %s holds %q, want %q", e.NewName, data, e.OldName)
		}
		contents[string(data)] = true
	}
	if len(contents) != 30 {
		t.Errorf("Expected 30 distinct files, got %d", len(contents))
	}
}

func TestAnonymizeFullNameSpaceKeepsFiles(t *testing.T) {
	root := t.TempDir()
	var names []string
	for _, c := range nameCharset {
		names = append(names, string(c)+".wav")
	}
	writeNamed(t, root, "pop", names)

	entries, err := newTestLibrary(root).Anonymize(1, map[string]bool{})
	if !errors.Is(err, ErrNameSpaceSmall) {
		t.Errorf("Expected ErrNameSpaceSmall, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no renames, got %d", len(entries))
	}
	if n := countFiles(t, filepath.Join(root, "pop")); n != len(nameCharset) {
		t.Errorf("Expected %d files, got %d", len(nameCharset), n)
	}
}

func TestInNameSpace(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   bool
	}{
		{"a.wav", 1, true},
		{"Zx9.wav", 3, true},
		{"ab.wav", 1, false},
		{"a.mp3", 1, false},
		{"-.wav", 1, false},
		{"pop-0.wav", 5, false},
	}
	for _, tt := range tests {
		if got := inNameSpace(tt.name, tt.length); got != tt.want {
			t.Errorf("inNameSpace(%q, %d) = %v, want %v", tt.name, tt.length, got, tt.want)
		}
	}
}

func TestAnonymizeNoGenres(t *testing.T) {
	if _, err := newTestLibrary(t.TempDir()).Anonymize(5, nil); !errors.Is(err, ErrNoGenres) {
		t.Errorf("Expected ErrNoGenres, got %v", err)
	}
}

func TestCorrespondenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corr.csv")
	want := []models.CorrespondenceEntry{
		{OldName: "Song, with comma.wav", NewName: "abc.wav", Genre: "pop"},
		{OldName: "other.wav", NewName: "def.wav", Genre: "rock"},
	}
	if err := WriteCorrespondence(path, want); err != nil {
		t.Fatalf("WriteCorrespondence failed: %v", err)
	}
	got, err := ReadCorrespondence(path)
	if err != nil {
		t.Fatalf("ReadCorrespondence failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPruneUnlistedRespectsCap(t *testing.T) {
	root := makeLibrary(t, map[string]int{"pop": 4, "rock": 4})
	keep := map[string]bool{"pop-0.wav": true, "rock-0.wav": true}

	removed, err := newTestLibrary(root).PruneUnlisted(keep, 3)
	if err != nil {
		t.Fatalf("PruneUnlisted failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Expected 3 removals, got %d", removed)
	}
	if left := countFiles(t, filepath.Join(root, "pop")) + countFiles(t, filepath.Join(root, "rock")); left != 5 {
		t.Errorf("Expected 5 files left, got %d", left)
	}
}

func TestPruneUnlistedKeepsListed(t *testing.T) {
	root := makeLibrary(t, map[string]int{"pop": 3})
	keep := map[string]bool{"pop-1.wav": true}

	removed, err := newTestLibrary(root).PruneUnlisted(keep, -1)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removals, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(root, "pop", "pop-1.wav")); err != nil {
		t.Error("Listed file was deleted")
	}
}

func TestEqualizeToSmallest(t *testing.T) {
	root := makeLibrary(t, map[string]int{"pop": 7, "rock": 3, "metal": 5})

	results, err := newTestLibrary(root).Equalize(0)
	if err != nil {
		t.Fatalf("Equalize failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for _, g := range []string{"pop", "rock", "metal"} {
		if n := countFiles(t, filepath.Join(root, g)); n != 3 {
			t.Errorf("Genre %s has %d files, want 3", g, n)
		}
	}
}

func TestEqualizeExplicitLength(t *testing.T) {
	root := makeLibrary(t, map[string]int{"pop": 7, "rock": 3})

	if _, err := newTestLibrary(root).Equalize(5); err != nil {
		t.Fatal(err)
	}
	if n := countFiles(t, filepath.Join(root, "pop")); n != 5 {
		t.Errorf("pop has %d files, want 5", n)
	}
	if n := countFiles(t, filepath.Join(root, "rock")); n != 3 {
		t.Errorf("rock has %d files, want 3", n)
	}
}
