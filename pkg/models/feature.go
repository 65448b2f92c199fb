package models

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// NumMFCC is the number of MFCC coefficients summarized per frame.
	NumMFCC = 20
	// NumDescriptors counts the scalar descriptors preceding the MFCCs.
	NumDescriptors = 15
	// NumColumns is frame_id + descriptors + MFCC means and variances + genre.
	NumColumns = 1 + NumDescriptors + 2*NumMFCC + 1
)

var descriptorColumns = [NumDescriptors]string{
	"chroma_stft_mean", "chroma_stft_var",
	"rms_mean", "rms_var",
	"spectral_centroid_mean", "spectral_centroid_var",
	"spectral_bandwidth_mean", "spectral_bandwidth_var",
	"rolloff_mean", "rolloff_var",
	"zero_crossing_rate_mean", "zero_crossing_rate_var",
	"harmony_mean", "harmony_var",
	"tempo",
}

// FeatureRow is one frame of one source file.
type FeatureRow struct {
	FrameID string

	ChromaSTFTMean        float64
	ChromaSTFTVar         float64
	RMSMean               float64
	RMSVar                float64
	SpectralCentroidMean  float64
	SpectralCentroidVar   float64
	SpectralBandwidthMean float64
	SpectralBandwidthVar  float64
	RolloffMean           float64
	RolloffVar            float64
	ZeroCrossingRateMean  float64
	ZeroCrossingRateVar   float64
	HarmonyMean           float64
	HarmonyVar            float64
	Tempo                 float64

	MFCCMean [NumMFCC]float64
	MFCCVar  [NumMFCC]float64

	Genre string
}

// Columns returns the fixed CSV header shared by every stage.
func Columns() []string {
	cols := make([]string, 0, NumColumns)
	cols = append(cols, "frame_id")
	cols = append(cols, descriptorColumns[:]...)
	for i := 1; i <= NumMFCC; i++ {
		cols = append(cols, fmt.Sprintf("mfcc%d_mean", i))
	}
	for i := 1; i <= NumMFCC; i++ {
		cols = append(cols, fmt.Sprintf("mfcc%d_var", i))
	}
	return append(cols, "genre")
}

// FrameID builds "<stem>.<index>".
func FrameID(stem string, index int) string {
	return stem + "." + strconv.Itoa(index)
}

func (r *FeatureRow) descriptors() [NumDescriptors]*float64 {
	return [NumDescriptors]*float64{
		&r.ChromaSTFTMean, &r.ChromaSTFTVar,
		&r.RMSMean, &r.RMSVar,
		&r.SpectralCentroidMean, &r.SpectralCentroidVar,
		&r.SpectralBandwidthMean, &r.SpectralBandwidthVar,
		&r.RolloffMean, &r.RolloffVar,
		&r.ZeroCrossingRateMean, &r.ZeroCrossingRateVar,
		&r.HarmonyMean, &r.HarmonyVar,
		&r.Tempo,
	}
}

// Scalars returns the 55 numeric fields in column order.
func (r FeatureRow) Scalars() []float64 {
	out := make([]float64, 0, NumColumns-2)
	for _, p := range r.descriptors() {
		out = append(out, *p)
	}
	out = append(out, r.MFCCMean[:]...)
	return append(out, r.MFCCVar[:]...)
}

// SetScalars assigns the numeric fields from a slice in column order.
func (r *FeatureRow) SetScalars(vals []float64) error {
	if len(vals) != NumColumns-2 {
		return fmt.Errorf("expected %d scalars, got %d", NumColumns-2, len(vals))
	}
	for i, p := range r.descriptors() {
		*p = vals[i]
	}
	copy(r.MFCCMean[:], vals[NumDescriptors:NumDescriptors+NumMFCC])
	copy(r.MFCCVar[:], vals[NumDescriptors+NumMFCC:])
	return nil
}

// Record serializes the row in Columns() order.
func (r FeatureRow) Record() []string {
	rec := make([]string, 0, NumColumns)
	rec = append(rec, r.FrameID)
	for _, v := range r.Scalars() {
		rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return append(rec, r.Genre)
}

// ParseFeatureRow reads a record laid out as Columns(). The header must match
// exactly so that tables from different genres concatenate correctly.
func ParseFeatureRow(header, record []string) (FeatureRow, error) {
	var row FeatureRow
	if len(header) != NumColumns {
		return row, fmt.Errorf("header has %d columns, want %d", len(header), NumColumns)
	}
	for i, col := range Columns() {
		if header[i] != col {
			return row, fmt.Errorf("column %d is %q, want %q", i, header[i], col)
		}
	}
	if len(record) != NumColumns {
		return row, fmt.Errorf("record has %d fields, want %d", len(record), NumColumns)
	}

	vals := make([]float64, NumColumns-2)
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return row, fmt.Errorf("column %s: %w", header[i+1], err)
		}
		vals[i] = v
	}
	row.FrameID = record[0]
	row.Genre = strings.TrimSpace(record[NumColumns-1])
	return row, row.SetScalars(vals)
}

// HasZero reports whether any numeric field equals zero. Zero never occurs
// as a real measurement for these descriptors and marks a failed frame.
// String fields are rejected only when digit-only zero, so a frame_id such
// as "0.0" passes here even though FieldIsZero, used by the cleaner, matches it.
func (r FeatureRow) HasZero() bool {
	for _, v := range r.Scalars() {
		if v == 0 {
			return true
		}
	}
	return digitZero(r.FrameID) || digitZero(r.Genre)
}

// FieldIsZero reports whether a serialized field is the zero sentinel: a
// digit-only string whose value is 0, or any numeric spelling of zero.
func FieldIsZero(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if digitZero(s) {
		return true
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v == 0
}

// digitZero matches strings made only of '0' digits ("0", "000").
func digitZero(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && strings.Trim(s, "0") == ""
}

// ValidateRows splits rows into those with every field non-zero and the rest.
func ValidateRows(rows []FeatureRow) (kept, rejected []FeatureRow) {
	kept = make([]FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.HasZero() {
			rejected = append(rejected, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, rejected
}
