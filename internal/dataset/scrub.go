package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/nlouis56/vroume/pkg/models"
)

// ErrUnknownGenre is returned when a row's genre has no tempo range.
var ErrUnknownGenre = errors.New("no tempo range for genre")

// TempoRange is an inclusive BPM interval.
type TempoRange struct {
	Low  float64
	High float64
}

// Contains reports whether bpm lies within the closed interval.
func (r TempoRange) Contains(bpm float64) bool {
	return bpm >= r.Low && bpm <= r.High
}

// TempoRanges maps genre labels to their plausible tempo range.
type TempoRanges map[string]TempoRange

func DefaultTempoRanges() TempoRanges {
	return TempoRanges{
		"pop":       {70, 150},
		"techno":    {100, 190},
		"hardstyle": {100, 200},
		"house":     {90, 140},
		"gabber":    {100, 240},
		"hiphop":    {70, 160},
		"metal":     {75, 165},
		"rock":      {65, 160},
		"reggae":    {60, 180},
		"reggaeton": {80, 180},
	}
}

// LoadTempoRanges reads a JSON object of genre -> [low, high].
func LoadTempoRanges(path string) (TempoRanges, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string][2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing tempo ranges %s: %w", path, err)
	}
	ranges := make(TempoRanges, len(raw))
	for genre, lh := range raw {
		if lh[0] > lh[1] {
			return nil, fmt.Errorf("tempo range for %q is inverted: %v", genre, lh)
		}
		ranges[strings.TrimSpace(genre)] = TempoRange{Low: lh[0], High: lh[1]}
	}
	return ranges, nil
}

// Lookup returns the range for genre or ErrUnknownGenre.
func (tr TempoRanges) Lookup(genre string) (TempoRange, error) {
	r, ok := tr[strings.TrimSpace(genre)]
	if !ok {
		return r, fmt.Errorf("%w %q", ErrUnknownGenre, genre)
	}
	return r, nil
}

// ScrubReport summarizes the tempos removed by Scrub. The statistics are
// diagnostics for tuning range boundaries.
type ScrubReport struct {
	Total        int
	Removed      int
	Mean         float64
	Median       float64
	Top10Mean    float64
	Bottom10Mean float64
}

// Scrub drops rows whose tempo falls outside their genre's range. An unknown
// genre aborts the scrub.
func Scrub(rows []models.FeatureRow, ranges TempoRanges) ([]models.FeatureRow, ScrubReport, error) {
	report := ScrubReport{Total: len(rows)}
	kept := make([]models.FeatureRow, 0, len(rows))
	var dropped []float64
	for _, row := range rows {
		r, err := ranges.Lookup(row.Genre)
		if err != nil {
			return nil, report, err
		}
		if !r.Contains(row.Tempo) {
			dropped = append(dropped, row.Tempo)
			continue
		}
		kept = append(kept, row)
	}
	report.Removed = len(dropped)
	if len(dropped) == 0 {
		return kept, report, nil
	}

	sort.Float64s(dropped)
	report.Mean = stat.Mean(dropped, nil)
	report.Median = median(dropped)
	n := min(10, len(dropped))
	report.Bottom10Mean = stat.Mean(dropped[:n], nil)
	report.Top10Mean = stat.Mean(dropped[len(dropped)-n:], nil)
	return kept, report, nil
}

// median of an already sorted slice, averaging the middle pair.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ScrubFile scrubs a feature CSV into outPath.
func ScrubFile(inPath, outPath string, ranges TempoRanges) (ScrubReport, error) {
	t, err := ReadCSV(inPath)
	if err != nil {
		return ScrubReport{}, err
	}
	rows, err := t.FeatureRows()
	if err != nil {
		return ScrubReport{}, fmt.Errorf("%s: %w", inPath, err)
	}
	kept, report, err := Scrub(rows, ranges)
	if err != nil {
		return report, fmt.Errorf("%s: %w", inPath, err)
	}
	return report, WriteCSV(outPath, FromFeatureRows(kept))
}
