package models

import (
	"strings"
	"testing"
)

func sampleRow() FeatureRow {
	r := FeatureRow{FrameID: "abc.3", Genre: "metal"}
	vals := make([]float64, NumColumns-2)
	for i := range vals {
		vals[i] = float64(i) + 0.5
	}
	r.SetScalars(vals)
	return r
}

func TestColumnsLayout(t *testing.T) {
	cols := Columns()
	if len(cols) != 56 {
		t.Fatalf("Expected 56 columns, got %d", len(cols))
	}
	if cols[0] != "frame_id" || cols[15] != "tempo" || cols[55] != "genre" {
		t.Errorf("Unexpected anchors: %s %s %s", cols[0], cols[15], cols[55])
	}
	if cols[16] != "mfcc1_mean" || cols[35] != "mfcc20_mean" || cols[36] != "mfcc1_var" || cols[54] != "mfcc19_var" {
		t.Errorf("Unexpected MFCC layout: %v", cols[16:])
	}
}

func TestRecordParseRoundTrip(t *testing.T) {
	row := sampleRow()
	rec := row.Record()
	if len(rec) != NumColumns {
		t.Fatalf("Record has %d fields", len(rec))
	}

	parsed, err := ParseFeatureRow(Columns(), rec)
	if err != nil {
		t.Fatalf("ParseFeatureRow failed: %v", err)
	}
	if parsed != row {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", parsed, row)
	}
}

func TestParseRejectsWrongHeader(t *testing.T) {
	header := Columns()
	header[3], header[4] = header[4], header[3]
	if _, err := ParseFeatureRow(header, sampleRow().Record()); err == nil {
		t.Error("Expected error for swapped columns")
	}
	if _, err := ParseFeatureRow(Columns()[:10], sampleRow().Record()); err == nil {
		t.Error("Expected error for short header")
	}
}

func TestHasZeroRejectsAnyZeroField(t *testing.T) {
	if sampleRow().HasZero() {
		t.Fatal("All-nonzero row should be kept")
	}

	for i := 0; i < NumColumns-2; i++ {
		row := sampleRow()
		vals := row.Scalars()
		vals[i] = 0
		row.SetScalars(vals)
		if !row.HasZero() {
			t.Errorf("Row with zero at scalar %d was not rejected", i)
		}
	}

	row := sampleRow()
	row.Genre = "0"
	if !row.HasZero() {
		t.Error("Row with digit-zero string field was not rejected")
	}

	row = sampleRow()
	row.FrameID = "0.0"
	if row.HasZero() {
		t.Error("frame_id \"0.0\" is not a digit-only zero and should be kept")
	}
}

func TestFrameIDZeroValidatorVersusCleaner(t *testing.T) {
	row := sampleRow()
	row.FrameID = "0.0"
	if row.HasZero() {
		t.Error("Validator should keep frame_id \"0.0\"")
	}
	if !FieldIsZero(row.Record()[0]) {
		t.Error("Cleaner check should match frame_id \"0.0\"")
	}
}

func TestNegativeValuesAreKept(t *testing.T) {
	row := sampleRow()
	row.MFCCMean[0] = -321.4
	if row.HasZero() {
		t.Error("Negative MFCC mean should not count as zero")
	}
}

func TestFieldIsZero(t *testing.T) {
	zero := []string{"0", "000", "0.0", " 0.0 ", "-0.0", "0e0"}
	nonZero := []string{"", "0.01", "1", "abc", "10", "-3.2"}
	for _, s := range zero {
		if !FieldIsZero(s) {
			t.Errorf("FieldIsZero(%q) = false, want true", s)
		}
	}
	for _, s := range nonZero {
		if FieldIsZero(s) {
			t.Errorf("FieldIsZero(%q) = true, want false", s)
		}
	}
}

func TestValidateRows(t *testing.T) {
	good := sampleRow()
	bad := sampleRow()
	bad.Tempo = 0

	kept, rejected := ValidateRows([]FeatureRow{good, bad, good})
	if len(kept) != 2 || len(rejected) != 1 {
		t.Errorf("kept=%d rejected=%d, want 2 and 1", len(kept), len(rejected))
	}
}

func TestFrameID(t *testing.T) {
	if got := FrameID("Zx81aB", 12); got != "Zx81aB.12" {
		t.Errorf("FrameID = %q", got)
	}
	if !strings.HasPrefix(Song{Title: "T", Artist: "A"}.String(), "T - A") {
		t.Error("Song.String format changed")
	}
}
