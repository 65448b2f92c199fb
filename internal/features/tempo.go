package features

import "math"

const (
	StartBPM = 120.0
	MinBPM   = 30.0
	MaxBPM   = 320.0
)

// OnsetStrength is the mean positive frame-to-frame increase of a log-mel
// spectrogram, one value per frame.
func OnsetStrength(logMel [][]float64) []float64 {
	out := make([]float64, len(logMel))
	for t := 1; t < len(logMel); t++ {
		sum := 0.0
		for m, v := range logMel[t] {
			if d := v - logMel[t-1][m]; d > 0 {
				sum += d
			}
		}
		out[t] = sum / float64(len(logMel[t]))
	}
	return out
}

func autocorrelate(x []float64, maxLag int) []float64 {
	ac := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag && lag < len(x); lag++ {
		sum := 0.0
		for i := lag; i < len(x); i++ {
			sum += x[i] * x[i-lag]
		}
		ac[lag] = sum
	}
	return ac
}

// EstimateTempo picks the autocorrelation lag of the onset envelope that is
// most likely under a log-normal prior centred on StartBPM (one octave
// standard deviation). Silent input lands on the lag closest to StartBPM.
func EstimateTempo(onset []float64, sampleRate, hop int) float64 {
	framesPerMinute := 60.0 * float64(sampleRate) / float64(hop)
	minLag := max(1, int(math.Floor(framesPerMinute/MaxBPM)))
	maxLag := int(math.Ceil(framesPerMinute / MinBPM))
	ac := autocorrelate(onset, maxLag)

	peak := 0.0
	for _, v := range ac {
		peak = math.Max(peak, v)
	}

	best, bestScore := StartBPM, math.Inf(-1)
	for lag := minLag; lag <= maxLag && lag < len(ac); lag++ {
		bpm := framesPerMinute / float64(lag)
		if bpm < MinBPM || bpm > MaxBPM {
			continue
		}
		strength := 0.0
		if peak > 0 {
			strength = ac[lag] / peak
		}
		oct := math.Log2(bpm) - math.Log2(StartBPM)
		score := math.Log1p(1e6*math.Max(strength, 0)) - 0.5*oct*oct
		if score > bestScore {
			best, bestScore = bpm, score
		}
	}
	return best
}
