package dataset

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// GenreColumn names the label column used for stratification.
const GenreColumn = "genre"

// RecombineStats counts the rows dropped while recombining.
type RecombineStats struct {
	Input      int
	Incomplete int
	Duplicates int
	Output     int
}

// Recombine concatenates tables sharing a header, drops rows with a missing
// field, drops exact duplicate rows and shuffles the rest.
func Recombine(tables []*Table, rng *rand.Rand) (*Table, RecombineStats, error) {
	var stats RecombineStats
	var header []string
	for _, t := range tables {
		if len(t.Header) == 0 {
			continue
		}
		if header == nil {
			header = t.Header
		} else if !slices.Equal(header, t.Header) {
			return nil, stats, fmt.Errorf("header mismatch: %v vs %v", header, t.Header)
		}
	}

	out := &Table{Header: header}
	seen := make(map[string]struct{})
	for _, t := range tables {
		for _, row := range t.Rows {
			stats.Input++
			if incomplete(row, len(header)) {
				stats.Incomplete++
				continue
			}
			key := strings.Join(row, "\x1f")
			if _, dup := seen[key]; dup {
				stats.Duplicates++
				continue
			}
			seen[key] = struct{}{}
			out.Rows = append(out.Rows, row)
		}
	}
	shuffle(out.Rows, rng)
	stats.Output = len(out.Rows)
	return out, stats, nil
}

// missingMarkers are the cell spellings read as missing values, besides the
// empty cell.
var missingMarkers = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

func isMissing(field string) bool {
	f := strings.TrimSpace(field)
	return f == "" || missingMarkers[f]
}

func incomplete(row []string, width int) bool {
	if len(row) != width {
		return true
	}
	for _, f := range row {
		if isMissing(f) {
			return true
		}
	}
	return false
}

func shuffle(rows [][]string, rng *rand.Rand) {
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
}

// Slice takes n/G rows from each of the G genres, in order of first
// appearance, and shuffles the result. A genre with fewer rows contributes
// all it has.
func Slice(t *Table, n int, rng *rand.Rand) (*Table, error) {
	labels, err := t.Column(GenreColumn)
	if err != nil {
		return nil, err
	}
	var order []string
	byGenre := make(map[string][][]string)
	for i, row := range t.Rows {
		g := strings.TrimSpace(labels[i])
		if _, ok := byGenre[g]; !ok {
			order = append(order, g)
		}
		byGenre[g] = append(byGenre[g], row)
	}

	out := &Table{Header: t.Header}
	if len(order) == 0 {
		return out, nil
	}
	perGenre := n / len(order)
	for _, g := range order {
		rows := byGenre[g]
		out.Rows = append(out.Rows, rows[:min(perGenre, len(rows))]...)
	}
	shuffle(out.Rows, rng)
	return out, nil
}

// SliceSize names a target slice size; the label goes into the file name.
type SliceSize struct {
	Label string
	N     int
}

func DefaultSliceSizes() []SliceSize {
	return []SliceSize{
		{"1k", 1_000},
		{"5k", 5_000},
		{"10k", 10_000},
		{"50k", 50_000},
		{"100k", 100_000},
	}
}

// ParseSliceSizes reads a comma-separated list of row counts such as
// "1000,5000" and labels them like the defaults ("1k", "5k").
func ParseSliceSizes(s string) ([]SliceSize, error) {
	var sizes []SliceSize
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid slice size %q", part)
		}
		label := strconv.Itoa(n)
		if n%1000 == 0 {
			label = strconv.Itoa(n/1000) + "k"
		}
		sizes = append(sizes, SliceSize{Label: label, N: n})
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no slice sizes in %q", s)
	}
	return sizes, nil
}

// SliceResult describes one written slice.
type SliceResult struct {
	Size SliceSize
	Path string
	Rows int
}

// WriteSlices writes one features<label>.csv per size. Each slice is drawn
// independently from t.
func WriteSlices(dir string, t *Table, sizes []SliceSize, rng *rand.Rand) ([]SliceResult, error) {
	results := make([]SliceResult, 0, len(sizes))
	for _, size := range sizes {
		s, err := Slice(t, size.N, rng)
		if err != nil {
			return results, err
		}
		path := filepath.Join(dir, "features"+size.Label+".csv")
		if err := WriteCSV(path, s); err != nil {
			return results, err
		}
		results = append(results, SliceResult{Size: size, Path: path, Rows: s.Len()})
	}
	return results, nil
}
