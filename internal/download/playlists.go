package download

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadPlaylistFile returns the playlist links of a text file, one per line.
// Blank lines and lines starting with '#' are ignored.
func ReadPlaylistFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist file: %w", err)
	}
	defer f.Close()

	var links []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("no playlist links in %s", path)
	}
	return links, nil
}
