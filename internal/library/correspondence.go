package library

import (
	"fmt"

	"github.com/nlouis56/vroume/internal/dataset"
	"github.com/nlouis56/vroume/pkg/models"
)

// WriteCorrespondence writes entries as an old_name,new_name,genre CSV.
func WriteCorrespondence(path string, entries []models.CorrespondenceEntry) error {
	t := &dataset.Table{Header: models.CorrespondenceColumns}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{e.OldName, e.NewName, e.Genre})
	}
	return dataset.WriteCSV(path, t)
}

// ReadCorrespondence loads a correspondence CSV. Column order may vary.
func ReadCorrespondence(path string) ([]models.CorrespondenceEntry, error) {
	t, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	cols := make([][]string, len(models.CorrespondenceColumns))
	for i, name := range models.CorrespondenceColumns {
		if cols[i], err = t.Column(name); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	entries := make([]models.CorrespondenceEntry, t.Len())
	for i := range entries {
		entries[i] = models.CorrespondenceEntry{OldName: cols[0][i], NewName: cols[1][i], Genre: cols[2][i]}
	}
	return entries, nil
}
