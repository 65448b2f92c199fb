package features

import "math"

// dctMatrix returns an orthonormal DCT-II basis of numCoeffs rows over n inputs.
func dctMatrix(numCoeffs, n int) [][]float64 {
	m := make([][]float64, numCoeffs)
	for k := 0; k < numCoeffs; k++ {
		m[k] = make([]float64, n)
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		for i := 0; i < n; i++ {
			m[k][i] = scale * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
	}
	return m
}

// MFCC computes numCoeffs cepstral coefficients per frame from a log-mel
// spectrogram. The result is coefficient-major: out[coeff][frame].
func MFCC(logMel [][]float64, numCoeffs int) [][]float64 {
	out := make([][]float64, numCoeffs)
	for k := range out {
		out[k] = make([]float64, len(logMel))
	}
	if len(logMel) == 0 {
		return out
	}
	basis := dctMatrix(numCoeffs, len(logMel[0]))
	for t, frame := range logMel {
		for k, row := range basis {
			sum := 0.0
			for i, v := range frame {
				sum += row[i] * v
			}
			out[k][t] = sum
		}
	}
	return out
}
