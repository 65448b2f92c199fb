package library

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/nlouis56/vroume/pkg/logger"
	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

const nameCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	ErrNoGenres       = errors.New("no genre subfolders found")
	ErrNameSpaceSmall = errors.New("not enough distinct names for the requested length")
	ErrTargetExists   = errors.New("anonymized name already exists")
)

// Library is a music folder laid out as <root>/<genre>/<file>.
type Library struct {
	Root string
	rng  *rand.Rand
	log  *logger.Logger
}

func New(root string, rng *rand.Rand, log *logger.Logger) *Library {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Library{Root: root, rng: rng, log: log}
}

// Genres lists the genre subfolders.
func (l *Library) Genres() ([]string, error) {
	genres, err := utils.ListSubdirs(l.Root)
	if err != nil {
		return nil, err
	}
	if len(genres) == 0 {
		return nil, fmt.Errorf("%s: %w", l.Root, ErrNoGenres)
	}
	return genres, nil
}

func (l *Library) randomName(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(nameCharset[l.rng.IntN(len(nameCharset))])
	}
	return b.String()
}

// Anonymize renames every file under each genre folder to a random
// alphanumeric name of nameLength characters plus ".wav". A name in taken or
// already present in the library is never handed out. The mapping is
// returned in rename order.
func (l *Library) Anonymize(nameLength int, taken map[string]bool) ([]models.CorrespondenceEntry, error) {
	if nameLength <= 0 {
		return nil, fmt.Errorf("invalid name length %d", nameLength)
	}
	genres, err := l.Genres()
	if err != nil {
		return nil, err
	}

	listing := make(map[string][]string, len(genres))
	used := make(map[string]bool, len(taken))
	for n := range taken {
		used[n] = true
	}
	for _, genre := range genres {
		files, err := utils.ListFiles(filepath.Join(l.Root, genre), "")
		if err != nil {
			return nil, err
		}
		listing[genre] = files
		for _, path := range files {
			used[filepath.Base(path)] = true
		}
	}

	var entries []models.CorrespondenceEntry
	for _, genre := range genres {
		for _, path := range listing[genre] {
			name, err := l.uniqueName(nameLength, used)
			if err != nil {
				return entries, err
			}
			target := filepath.Join(l.Root, genre, name)
			if _, err := os.Lstat(target); err == nil {
				return entries, fmt.Errorf("%s: %w", target, ErrTargetExists)
			}
			if err := utils.MoveFile(path, target); err != nil {
				return entries, err
			}
			used[name] = true
			entries = append(entries, models.CorrespondenceEntry{
				OldName: filepath.Base(path),
				NewName: name,
				Genre:   genre,
			})
		}
		l.log.Infof("Anonymized %s", genre)
	}
	return entries, nil
}

// uniqueName draws names until one is not in used. Only used names that
// belong to the length's name space count against its capacity.
func (l *Library) uniqueName(length int, used map[string]bool) (string, error) {
	space := 1.0
	for i := 0; i < length; i++ {
		space *= float64(len(nameCharset))
	}
	inSpace := 0
	for n := range used {
		if inNameSpace(n, length) {
			inSpace++
		}
	}
	if float64(inSpace) >= space {
		return "", ErrNameSpaceSmall
	}
	for {
		name := l.randomName(length) + ".wav"
		if !used[name] {
			return name, nil
		}
	}
}

func inNameSpace(name string, length int) bool {
	stem, ok := strings.CutSuffix(name, ".wav")
	if !ok || len(stem) != length {
		return false
	}
	for i := 0; i < len(stem); i++ {
		if strings.IndexByte(nameCharset, stem[i]) < 0 {
			return false
		}
	}
	return true
}

// PruneUnlisted deletes library files whose name is not among keep. It stops
// once maxRemovals files have been deleted; a negative cap means no limit.
func (l *Library) PruneUnlisted(keep map[string]bool, maxRemovals int) (int, error) {
	genres, err := l.Genres()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, genre := range genres {
		files, err := utils.ListFiles(filepath.Join(l.Root, genre), "")
		if err != nil {
			return removed, err
		}
		for _, path := range files {
			if keep[filepath.Base(path)] {
				continue
			}
			if maxRemovals >= 0 && removed >= maxRemovals {
				l.log.Warnf("Reached the removal cap of %d, stopping", maxRemovals)
				return removed, nil
			}
			if err := utils.DeleteFile(path); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// EqualizeResult reports how many files were removed from one genre.
type EqualizeResult struct {
	Genre   string
	Before  int
	Removed int
}

// Equalize shuffles each genre folder and deletes files past length. A
// length of zero or less uses the smallest folder's count.
func (l *Library) Equalize(length int) ([]EqualizeResult, error) {
	genres, err := l.Genres()
	if err != nil {
		return nil, err
	}
	listing := make(map[string][]string, len(genres))
	smallest := -1
	for _, genre := range genres {
		files, err := utils.ListFiles(filepath.Join(l.Root, genre), "")
		if err != nil {
			return nil, err
		}
		listing[genre] = files
		if smallest < 0 || len(files) < smallest {
			smallest = len(files)
		}
	}
	if length <= 0 {
		length = smallest
		l.log.Infof("Length not provided, using the smallest genre size: %d", length)
	}

	results := make([]EqualizeResult, 0, len(genres))
	for _, genre := range genres {
		files := listing[genre]
		l.rng.Shuffle(len(files), func(i, j int) { files[i], files[j] = files[j], files[i] })
		res := EqualizeResult{Genre: genre, Before: len(files)}
		for _, path := range files[min(length, len(files)):] {
			if err := utils.DeleteFile(path); err != nil {
				return results, err
			}
			res.Removed++
		}
		l.log.Infof("%d files removed from %s", res.Removed, genre)
		results = append(results, res)
	}
	return results, nil
}
