package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

// CleanedSuffix is appended to a cleaned file's name.
const CleanedSuffix = ".cleaned.csv"

// CleanReport counts what CleanFile did to one file.
type CleanReport struct {
	Input   string
	Output  string
	Lines   int
	Blank   int
	Zeroed  int
	Written int
}

// CleanLine reports whether a serialized line survives cleaning: it must not
// be blank and none of its comma-separated fields may be a zero sentinel.
func CleanLine(line string) (keep bool, blank bool) {
	if strings.TrimSpace(line) == "" {
		return false, true
	}
	for _, field := range strings.Split(line, ",") {
		if models.FieldIsZero(field) {
			return false, false
		}
	}
	return true, false
}

// CleanFile filters path line by line into path+CleanedSuffix. The input is
// never modified.
func CleanFile(path string) (CleanReport, error) {
	report := CleanReport{Input: path, Output: path + CleanedSuffix}

	in, err := os.Open(path)
	if err != nil {
		return report, err
	}
	defer in.Close()

	out, err := os.Create(report.Output)
	if err != nil {
		return report, err
	}
	w := bufio.NewWriter(out)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		report.Lines++
		keep, blank := CleanLine(line)
		switch {
		case blank:
			report.Blank++
		case !keep:
			report.Zeroed++
		default:
			report.Written++
			if _, err := w.WriteString(line + "\n"); err != nil {
				out.Close()
				return report, fmt.Errorf("writing %s: %w", report.Output, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		out.Close()
		return report, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		out.Close()
		return report, fmt.Errorf("writing %s: %w", report.Output, err)
	}
	return report, out.Close()
}

// CleanDir cleans every *.csv in dir that is not itself a cleaned output.
func CleanDir(dir string) ([]CleanReport, error) {
	files, err := utils.ListFiles(dir, ".csv")
	if err != nil {
		return nil, err
	}
	var reports []CleanReport
	for _, f := range files {
		if strings.HasSuffix(f, CleanedSuffix) {
			continue
		}
		r, err := CleanFile(f)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("no csv files found in %s", dir)
	}
	return reports, nil
}
