package features

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Tunables
const (
	NFFT      = 2048
	HopLength = 512
)

// Hann returns a periodic Hann window of length n.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// reflectIndex mirrors i into [0, n) without repeating the edge sample.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// padCenter pads pad samples on both sides by reflection.
func padCenter(samples []float64, pad int) []float64 {
	out := make([]float64, len(samples)+2*pad)
	for i := range out {
		out[i] = samples[reflectIndex(i-pad, len(samples))]
	}
	return out
}

// Spectrogram is a centered short-time Fourier transform, time-major:
// Complex[frame][bin] with NFFT/2+1 bins per frame.
type Spectrogram struct {
	Complex    [][]complex128
	SampleRate int
	NFFT       int
	Hop        int
	Length     int // samples in the analysed signal
}

// STFT computes the centered STFT of samples. Each frame is windowed and
// transformed with go-dsp; only non-negative frequencies are kept.
func STFT(samples []float64, sampleRate, nfft, hop int, window []float64) (*Spectrogram, error) {
	if len(window) != nfft {
		return nil, errors.New("window length must equal nfft")
	}
	if hop <= 0 {
		return nil, errors.New("hop must be positive")
	}
	if len(samples) == 0 {
		return nil, errors.New("empty signal")
	}

	padded := padCenter(samples, nfft/2)
	numFrames := 1 + (len(padded)-nfft)/hop
	bins := nfft/2 + 1

	spec := &Spectrogram{
		Complex:    make([][]complex128, numFrames),
		SampleRate: sampleRate,
		NFFT:       nfft,
		Hop:        hop,
		Length:     len(samples),
	}
	frame := make([]float64, nfft)
	for t := 0; t < numFrames; t++ {
		start := t * hop
		for i := 0; i < nfft; i++ {
			frame[i] = padded[start+i] * window[i]
		}
		full := fft.FFTReal(frame)
		row := make([]complex128, bins)
		copy(row, full[:bins])
		spec.Complex[t] = row
	}
	return spec, nil
}

// Magnitude returns |X| per frame and bin.
func (s *Spectrogram) Magnitude() [][]float64 {
	out := make([][]float64, len(s.Complex))
	for t, row := range s.Complex {
		out[t] = make([]float64, len(row))
		for k, c := range row {
			out[t][k] = cmplx.Abs(c)
		}
	}
	return out
}

// Power returns |X|^2 per frame and bin.
func (s *Spectrogram) Power() [][]float64 {
	mag := s.Magnitude()
	for _, row := range mag {
		for k, v := range row {
			row[k] = v * v
		}
	}
	return mag
}

// FrequencyBins returns the centre frequency in Hz of each STFT bin.
func (s *Spectrogram) FrequencyBins() []float64 {
	return fftFrequencies(s.SampleRate, s.NFFT)
}

func fftFrequencies(sampleRate, nfft int) []float64 {
	bins := nfft/2 + 1
	freqs := make([]float64, bins)
	for i := range freqs {
		freqs[i] = float64(i) * float64(sampleRate) / float64(nfft)
	}
	return freqs
}

// ISTFT inverts a (possibly masked) spectrogram by windowed overlap-add.
func ISTFT(frames [][]complex128, nfft, hop, length int, window []float64) []float64 {
	if len(frames) == 0 {
		return make([]float64, length)
	}
	total := nfft + hop*(len(frames)-1)
	out := make([]float64, total)
	norm := make([]float64, total)

	full := make([]complex128, nfft)
	for t, row := range frames {
		// Rebuild the Hermitian-symmetric spectrum
		for k := 0; k < len(row) && k < nfft; k++ {
			full[k] = row[k]
		}
		for k := len(row); k < nfft; k++ {
			full[k] = cmplx.Conj(row[nfft-k])
		}
		ytmp := fft.IFFT(full)
		start := t * hop
		for i := 0; i < nfft; i++ {
			out[start+i] += real(ytmp[i]) * window[i]
			norm[start+i] += window[i] * window[i]
		}
	}
	for i := range out {
		if norm[i] > 1e-10 {
			out[i] /= norm[i]
		}
	}

	// Drop the centering pad
	pad := nfft / 2
	y := make([]float64, length)
	for i := range y {
		if pad+i < len(out) {
			y[i] = out[pad+i]
		}
	}
	return y
}
