package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

// ErrMissingColumn is returned when a table lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Table is a header plus string records, the common currency of every
// dataset stage.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col in the header, or -1.
func (t *Table) Index(col string) int {
	return slices.Index(t.Header, col)
}

// Column returns the values of col, or ErrMissingColumn.
func (t *Table) Column(col string) ([]string, error) {
	i := t.Index(col)
	if i < 0 {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, col)
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out, nil
}

// ReadCSV loads a comma-separated file whose first record is the header.
// Records may have fewer fields than the header.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeCSV(f, path)
}

func decodeCSV(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// WriteCSV writes header and rows to path, creating parent directories.
func WriteCSV(path string, t *Table) error {
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if len(t.Header) > 0 {
		if err := w.Write(t.Header); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadDir loads every *.csv file in dir, in name order.
func ReadDir(dir string) ([]*Table, []string, error) {
	files, err := utils.ListFiles(dir, ".csv")
	if err != nil {
		return nil, nil, err
	}
	tables := make([]*Table, 0, len(files))
	for _, f := range files {
		t, err := ReadCSV(f)
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, t)
	}
	return tables, files, nil
}

// FeatureRows parses every record as a FeatureRow.
func (t *Table) FeatureRows() ([]models.FeatureRow, error) {
	rows := make([]models.FeatureRow, 0, len(t.Rows))
	for i, rec := range t.Rows {
		row, err := models.ParseFeatureRow(t.Header, rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FromFeatureRows builds a table with the fixed feature header.
func FromFeatureRows(rows []models.FeatureRow) *Table {
	t := &Table{Header: models.Columns(), Rows: make([][]string, 0, len(rows))}
	for i := range rows {
		t.Rows = append(t.Rows, rows[i].Record())
	}
	return t
}
