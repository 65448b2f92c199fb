package features

import (
	"math"
	"testing"
)

func spectrumOf(t *testing.T, samples []float64, sr int) (*Spectrogram, [][]float64) {
	t.Helper()
	spec, err := STFT(samples, sr, NFFT, HopLength, Hann(NFFT))
	if err != nil {
		t.Fatalf("STFT failed: %v", err)
	}
	return spec, spec.Magnitude()
}

func TestSpectralCentroidOfSine(t *testing.T) {
	const sr = 22050
	spec, mag := spectrumOf(t, sine(2000, sr, sr), sr)
	centroid := SpectralCentroid(mag, spec.FrequencyBins())

	mid := centroid[len(centroid)/2]
	if math.Abs(mid-2000) > 50 {
		t.Errorf("Centroid = %.1f Hz, want ~2000 Hz", mid)
	}
}

func TestSpectralBandwidthNarrowForSine(t *testing.T) {
	const sr = 22050
	spec, mag := spectrumOf(t, sine(2000, sr, sr), sr)
	freqs := spec.FrequencyBins()
	bw := SpectralBandwidth(mag, freqs, SpectralCentroid(mag, freqs))

	if mid := bw[len(bw)/2]; mid <= 0 || mid > 500 {
		t.Errorf("Bandwidth = %.1f Hz, want a narrow positive spread", mid)
	}
}

func TestSpectralRolloff(t *testing.T) {
	freqs := []float64{0, 100, 200, 300}
	mag := [][]float64{
		{0, 1, 1, 8},
		{10, 0, 0, 0},
		{0, 0, 0, 0},
	}
	got := SpectralRolloff(mag, freqs, 0.85)
	want := []float64{300, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Frame %d rolloff = %.0f, want %.0f", i, got[i], want[i])
		}
	}
}

func TestSilentFramesAreZero(t *testing.T) {
	freqs := []float64{0, 100}
	mag := [][]float64{{0, 0}}
	if c := SpectralCentroid(mag, freqs); c[0] != 0 {
		t.Errorf("Centroid of silence = %f, want 0", c[0])
	}
	if b := SpectralBandwidth(mag, freqs, []float64{0}); b[0] != 0 {
		t.Errorf("Bandwidth of silence = %f, want 0", b[0])
	}
}

func TestRMSOfConstant(t *testing.T) {
	samples := make([]float64, 8192)
	for i := range samples {
		samples[i] = 0.5
	}
	rms := RMS(samples, NFFT, HopLength)

	if len(rms) != 1+len(samples)/HopLength {
		t.Errorf("Expected %d frames, got %d", 1+len(samples)/HopLength, len(rms))
	}
	// Interior windows are fully covered
	if mid := rms[len(rms)/2]; math.Abs(mid-0.5) > 1e-12 {
		t.Errorf("Interior RMS = %f, want 0.5", mid)
	}
	// Edge windows are half zero padding
	if math.Abs(rms[0]-0.5/math.Sqrt2) > 1e-3 {
		t.Errorf("Edge RMS = %f, want ~%f", rms[0], 0.5/math.Sqrt2)
	}
}

func TestZeroCrossingRate(t *testing.T) {
	// Alternating sign crosses at every sample
	alt := make([]float64, 4096)
	for i := range alt {
		alt[i] = 1
		if i%2 == 1 {
			alt[i] = -1
		}
	}
	zcr := ZeroCrossingRate(alt, NFFT, HopLength)
	if mid := zcr[len(zcr)/2]; math.Abs(mid-float64(NFFT-1)/NFFT) > 1e-9 {
		t.Errorf("ZCR of alternating signal = %f, want ~1", mid)
	}

	flat := make([]float64, 4096)
	for _, v := range ZeroCrossingRate(flat, NFFT, HopLength) {
		if v != 0 {
			t.Fatalf("ZCR of silence = %f, want 0", v)
		}
	}
}

func TestChromaSTFTPeaksAtA(t *testing.T) {
	const sr = 22050
	spec, _ := spectrumOf(t, sine(440, sr, sr), sr)
	chroma := ChromaSTFT(spec.Power(), spec.FrequencyBins())

	if len(chroma) != 12 {
		t.Fatalf("Expected 12 pitch classes, got %d", len(chroma))
	}
	mid := len(chroma[0]) / 2
	// A is pitch class 9 (C=0)
	if chroma[9][mid] != 1 {
		t.Errorf("A should be the normalized peak, got %f", chroma[9][mid])
	}
	for c := range chroma {
		if v := chroma[c][mid]; v < 0 || v > 1 {
			t.Errorf("Class %d out of [0,1]: %f", c, v)
		}
	}
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 200, 999, 1000, 4000, 11025} {
		if got := MelToHz(HzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Errorf("MelToHz(HzToMel(%f)) = %f", hz, got)
		}
	}
}

func TestMelFilterBankShape(t *testing.T) {
	bank := MelFilterBank(22050, NFFT, NumMels)
	if len(bank) != NumMels {
		t.Fatalf("Expected %d filters, got %d", NumMels, len(bank))
	}
	for m, filter := range bank {
		if len(filter) != NFFT/2+1 {
			t.Fatalf("Filter %d has %d bins", m, len(filter))
		}
		sum := 0.0
		for _, w := range filter {
			if w < 0 {
				t.Fatalf("Filter %d has negative weight", m)
			}
			sum += w
		}
		if sum == 0 {
			t.Errorf("Filter %d is empty", m)
		}
	}
}

func TestPowerToDBClipsRange(t *testing.T) {
	db := PowerToDB([][]float64{{1, 1e-3, 0}}, 80)
	if db[0][0] != 0 || math.Abs(db[0][1]+30) > 1e-9 || db[0][2] != -80 {
		t.Errorf("Unexpected dB values: %v", db[0])
	}
}

func TestMFCCOfConstantSpectrum(t *testing.T) {
	logMel := [][]float64{{2, 2, 2, 2}, {2, 2, 2, 2}}
	coeffs := MFCC(logMel, 3)

	// Orthonormal DCT puts all energy of a flat input into c0
	if math.Abs(coeffs[0][0]-4) > 1e-9 {
		t.Errorf("c0 = %f, want 4", coeffs[0][0])
	}
	for k := 1; k < 3; k++ {
		if math.Abs(coeffs[k][1]) > 1e-9 {
			t.Errorf("c%d = %f, want 0", k, coeffs[k][1])
		}
	}
}

func TestEstimateTempoFromPulseTrain(t *testing.T) {
	const sr = 22050
	onset := make([]float64, 200)
	for i := 0; i < len(onset); i += 20 {
		onset[i] = 1
	}
	want := 60.0 * sr / HopLength / 20

	if got := EstimateTempo(onset, sr, HopLength); math.Abs(got-want) > 0.5 {
		t.Errorf("Tempo = %.2f BPM, want %.2f", got, want)
	}
}

func TestEstimateTempoInRange(t *testing.T) {
	got := EstimateTempo(make([]float64, 50), 22050, HopLength)
	if got < MinBPM || got > MaxBPM {
		t.Errorf("Tempo %f outside [%v, %v]", got, MinBPM, MaxBPM)
	}
}

func TestOnsetStrengthPositiveFlux(t *testing.T) {
	logMel := [][]float64{{0, 0}, {2, 4}, {1, 1}}
	got := OnsetStrength(logMel)
	want := []float64{0, 3, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Onset[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestHPSSReconstructs(t *testing.T) {
	const sr = 22050
	samples := sine(440, sr, sr/2)
	for i := 0; i < len(samples); i += 2000 {
		samples[i] += 0.4 // clicks
	}
	harmonic, percussive, err := HPSS(samples, sr)
	if err != nil {
		t.Fatalf("HPSS failed: %v", err)
	}
	if len(harmonic) != len(samples) || len(percussive) != len(samples) {
		t.Fatalf("Unexpected output lengths %d and %d", len(harmonic), len(percussive))
	}
	// Soft masks sum to one, so the parts add back to the input
	for i := range samples {
		if d := math.Abs(harmonic[i] + percussive[i] - samples[i]); d > 1e-6 {
			t.Fatalf("Sample %d reconstructs with error %g", i, d)
		}
	}
}
