package audio

import (
	"math"
	"path/filepath"
	"testing"
)

// burst builds silence with loud sine bursts at the given [start, end) seconds
func burst(sampleRate int, total float64, spans ...[2]float64) []float64 {
	out := make([]float64, int(total*float64(sampleRate)))
	for _, sp := range spans {
		for i := int(sp[0] * float64(sampleRate)); i < int(sp[1]*float64(sampleRate)) && i < len(out); i++ {
			out[i] = 0.9 * math.Sin(2*math.Pi*220*float64(i)/float64(sampleRate))
		}
	}
	return out
}

func TestActiveSegmentsSeparatesBursts(t *testing.T) {
	const sr = 8000
	samples := burst(sr, 20, [2]float64{1, 7}, [2]float64{12, 19})

	segs := ActiveSegments(samples, sr, DefaultSegmentConfig())
	if len(segs) != 2 {
		t.Fatalf("Expected 2 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].End > 7.5 || segs[1].Start < 11 {
		t.Errorf("Segments do not follow the bursts: %+v", segs)
	}
}

func TestActiveSegmentsSilence(t *testing.T) {
	if segs := ActiveSegments(make([]float64, 8000), 8000, DefaultSegmentConfig()); len(segs) != 0 {
		t.Errorf("Expected no segments in silence, got %+v", segs)
	}
}

func TestExtractActiveParts(t *testing.T) {
	const sr = 8000
	dir := t.TempDir()
	src := filepath.Join(dir, "track.wav")
	if err := WriteWav(src, burst(sr, 20, [2]float64{1, 13}), sr); err != nil {
		t.Fatal(err)
	}

	written, err := ExtractActiveParts(src, filepath.Join(dir, "out"), DefaultSegmentConfig())
	if err != nil {
		t.Fatalf("ExtractActiveParts failed: %v", err)
	}
	// ~12s of activity yields two full 5s pieces
	if len(written) != 2 {
		t.Fatalf("Expected 2 pieces, got %d: %v", len(written), written)
	}
	for _, p := range written {
		samples, rate, err := ReadWavAsFloat64(p)
		if err != nil {
			t.Fatalf("Reading piece %s failed: %v", p, err)
		}
		if rate != sr || len(samples) != 5*sr {
			t.Errorf("Piece %s has %d samples at %d Hz", p, len(samples), rate)
		}
	}
}
