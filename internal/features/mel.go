package features

import "math"

const NumMels = 128

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp      = 200.0 / 3
	melMinLogHz = 1000.0
	melMinLog   = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

// HzToMel converts a frequency to the Slaney mel scale.
func HzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLog + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// MelToHz is the inverse of HzToMel.
func MelToHz(mel float64) float64 {
	if mel >= melMinLog {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLog))
	}
	return mel * melFSp
}

// MelFilterBank builds nMels triangular filters over the nfft/2+1 STFT bins,
// area-normalized so each filter has constant energy per Hz.
func MelFilterBank(sampleRate, nfft, nMels int) [][]float64 {
	fftFreqs := fftFrequencies(sampleRate, nfft)

	lo, hi := HzToMel(0), HzToMel(float64(sampleRate)/2)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = MelToHz(lo + (hi-lo)*float64(i)/float64(nMels+1))
	}

	bank := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		bank[m] = make([]float64, len(fftFreqs))
		left, centre, right := melF[m], melF[m+1], melF[m+2]
		enorm := 2.0 / (right - left)
		for k, f := range fftFreqs {
			lower := (f - left) / (centre - left)
			upper := (right - f) / (right - centre)
			if w := math.Min(lower, upper); w > 0 {
				bank[m][k] = w * enorm
			}
		}
	}
	return bank
}

// applyFilterBank projects each power frame onto the filters.
func applyFilterBank(power [][]float64, bank [][]float64) [][]float64 {
	out := make([][]float64, len(power))
	for t, frame := range power {
		out[t] = make([]float64, len(bank))
		for m, filter := range bank {
			sum := 0.0
			for k, w := range filter {
				if w != 0 && k < len(frame) {
					sum += w * frame[k]
				}
			}
			out[t][m] = sum
		}
	}
	return out
}

// PowerToDB converts power to decibels relative to 1.0, flooring at 1e-10
// and clipping everything more than topDB below the peak.
func PowerToDB(power [][]float64, topDB float64) [][]float64 {
	const amin = 1e-10
	peak := math.Inf(-1)
	out := make([][]float64, len(power))
	for t, frame := range power {
		out[t] = make([]float64, len(frame))
		for i, v := range frame {
			db := 10 * math.Log10(math.Max(amin, v))
			out[t][i] = db
			peak = math.Max(peak, db)
		}
	}
	if topDB > 0 {
		floor := peak - topDB
		for _, frame := range out {
			for i, v := range frame {
				if v < floor {
					frame[i] = floor
				}
			}
		}
	}
	return out
}
