package dataset

import "fmt"

// RemoveDuplicateKeys drops every row whose key column value occurs more
// than once. All occurrences go, not just the extras.
func RemoveDuplicateKeys(t *Table, key string) (*Table, int, error) {
	keys, err := t.Column(key)
	if err != nil {
		return nil, 0, err
	}
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k]++
	}

	out := &Table{Header: t.Header, Rows: make([][]string, 0, len(t.Rows))}
	for i, row := range t.Rows {
		if counts[keys[i]] > 1 {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, len(t.Rows) - len(out.Rows), nil
}

// RemoveDuplicatesFile rewrites path without its duplicated keys and returns
// the number of rows removed.
func RemoveDuplicatesFile(path, key string) (int, error) {
	t, err := ReadCSV(path)
	if err != nil {
		return 0, err
	}
	out, removed, err := RemoveDuplicateKeys(t, key)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := WriteCSV(path, out); err != nil {
		return 0, err
	}
	return removed, nil
}
