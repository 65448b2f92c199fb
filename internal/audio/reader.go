package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ErrNotWav is returned when the file has no RIFF/WAVE header.
var ErrNotWav = errors.New("not a WAV/RIFF file")

// convertMonoToFloat64 converts mono integer samples to float64
func convertMonoToFloat64(samples []int, scale float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) * scale
	}
	return out
}

// downmixToMono averages interleaved channels into one float64 channel
func downmixToMono(samples []int, numChannels int, scale float64) []float64 {
	frames := len(samples) / numChannels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < numChannels; c++ {
			sum += samples[i*numChannels+c]
		}
		out[i] = float64(sum) * scale / float64(numChannels)
	}
	return out
}

// convertToMonoFloat64 converts integer PCM to mono float64 samples normalized to [-1, 1]
func convertToMonoFloat64(buf *goaudio.IntBuffer) ([]float64, error) {
	if buf == nil || buf.Format == nil {
		return nil, errors.New("empty PCM buffer")
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bits per sample: %d", bitDepth)
	}
	scale := 1.0 / float64(int64(1)<<uint(bitDepth-1))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned; recentre before scaling
		centred := make([]int, len(buf.Data))
		for i, v := range buf.Data {
			centred[i] = v - 128
		}
		buf = &goaudio.IntBuffer{Format: buf.Format, Data: centred, SourceBitDepth: bitDepth}
	}

	switch n := buf.Format.NumChannels; {
	case n == 1:
		return convertMonoToFloat64(buf.Data, scale), nil
	case n > 1:
		return downmixToMono(buf.Data, n, scale), nil
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", n)
	}
}

// ReadWavAsFloat64 decodes a PCM WAV file at its native sample rate and returns
// mono samples in [-1, 1] together with the sample rate. Multi-channel input
// is averaged down to one channel.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrNotWav)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, 0, fmt.Errorf("unsupported WAV audio format %d: only PCM supported", d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding PCM samples: %w", err)
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(d.BitDepth)
	}

	samples, err := convertToMonoFloat64(buf)
	if err != nil {
		return nil, 0, err
	}
	if d.SampleRate == 0 {
		return nil, 0, errors.New("WAV header reports a zero sample rate")
	}
	return samples, int(d.SampleRate), nil
}
