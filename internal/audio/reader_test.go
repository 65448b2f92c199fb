package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWav writes an integer PCM WAV with the given layout
func writeTestWav(t *testing.T, path string, data []int, sampleRate, bitDepth, channels int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Failed to encode test wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close encoder: %v", err)
	}
}

func TestReadWavAsFloat64Mono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeTestWav(t, path, []int{0, 16384, -16384, 32767, -32768}, 22050, 16, 1)

	samples, sampleRate, err := ReadWavAsFloat64(path)
	if err != nil {
		t.Fatalf("ReadWavAsFloat64 failed: %v", err)
	}
	if sampleRate != 22050 {
		t.Errorf("Expected native sample rate 22050, got %d", sampleRate)
	}
	if len(samples) != 5 {
		t.Fatalf("Expected 5 samples, got %d", len(samples))
	}
	if samples[0] != 0 || samples[1] != 0.5 || samples[2] != -0.5 {
		t.Errorf("Unexpected normalization: %v", samples)
	}
	for i, v := range samples {
		if v < -1 || v > 1 {
			t.Errorf("Sample %d out of range [-1, 1]: %f", i, v)
		}
	}
}

func TestReadWavAsFloat64StereoDownmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	// Interleaved L, R
	writeTestWav(t, path, []int{16384, 16384, 16384, -16384, -32768, 0}, 44100, 16, 2)

	samples, sampleRate, err := ReadWavAsFloat64(path)
	if err != nil {
		t.Fatalf("ReadWavAsFloat64 failed: %v", err)
	}
	if sampleRate != 44100 {
		t.Errorf("Expected 44100 Hz, got %d", sampleRate)
	}
	want := []float64{0.5, 0, -0.5}
	if len(samples) != len(want) {
		t.Fatalf("Expected %d frames, got %d", len(want), len(samples))
	}
	for i := range want {
		if math.Abs(samples[i]-want[i]) > 1e-12 {
			t.Errorf("Frame %d = %f, want %f", i, samples[i], want[i])
		}
	}
}

func TestReadWavAsFloat64InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.wav")
	if err := os.WriteFile(path, []byte("INVALID HEADER DATA"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadWavAsFloat64(path); err == nil {
		t.Error("ReadWavAsFloat64 should fail on invalid file")
	}
}

func TestReadWavAsFloat64NonExistent(t *testing.T) {
	_, _, err := ReadWavAsFloat64("nonexistent-file.wav")
	if err == nil {
		t.Error("Expected error when reading non-existent file")
	}
}

func TestWriteWavRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.wav")
	in := make([]float64, 1000)
	for i := range in {
		in[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/8000)
	}

	if err := WriteWav(path, in, 8000); err != nil {
		t.Fatalf("WriteWav failed: %v", err)
	}
	out, sr, err := ReadWavAsFloat64(path)
	if err != nil {
		t.Fatalf("Reading written wav failed: %v", err)
	}
	if sr != 8000 || len(out) != len(in) {
		t.Fatalf("Got %d samples at %d Hz, want %d at 8000", len(out), sr, len(in))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1e-4 {
			t.Fatalf("Sample %d = %f, want %f", i, out[i], in[i])
		}
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file left behind")
	}
}

func TestConvertToMonoFloat64Unsupported(t *testing.T) {
	buf := &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: 0}, SourceBitDepth: 16}
	if _, err := convertToMonoFloat64(buf); err == nil {
		t.Error("Expected error for zero channels")
	}
	buf = &goaudio.IntBuffer{Format: &goaudio.Format{NumChannels: 1}, SourceBitDepth: 0}
	if _, err := convertToMonoFloat64(buf); err == nil {
		t.Error("Expected error for zero bit depth")
	}
}
