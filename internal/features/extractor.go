package features

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/nlouis56/vroume/internal/audio"
	"github.com/nlouis56/vroume/pkg/logger"
	"github.com/nlouis56/vroume/pkg/models"
	"github.com/nlouis56/vroume/pkg/utils"
)

// TopDB is the dynamic range kept by the log-mel spectrogram.
const TopDB = 80.0

// Extractor turns audio files into per-frame feature rows.
type Extractor struct {
	log *logger.Logger

	mu    sync.Mutex
	banks map[int][][]float64 // mel filter banks by sample rate
	win   []float64
}

func NewExtractor(log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Extractor{
		log:   log,
		banks: make(map[int][][]float64),
		win:   Hann(NFFT),
	}
}

func (e *Extractor) melBank(sampleRate int) [][]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	bank, ok := e.banks[sampleRate]
	if !ok {
		bank = MelFilterBank(sampleRate, NFFT, NumMels)
		e.banks[sampleRate] = bank
	}
	return bank
}

// ExtractFile decodes a file and extracts one row per frame. Failures are
// logged and yield no rows so a bad file never stops a batch.
func (e *Extractor) ExtractFile(path string, duration float64, genre string) []models.FeatureRow {
	samples, sampleRate, err := audio.ReadWavAsFloat64(path)
	if err != nil {
		e.log.Warnf("Skipping %s: %v", path, err)
		return nil
	}
	rows, err := e.ExtractSamples(utils.FileStem(path), samples, sampleRate, duration, genre)
	if err != nil {
		e.log.Warnf("Skipping %s: %v", path, err)
		return nil
	}
	e.log.Debugf("Extracted %d frames from %s", len(rows), path)
	return rows
}

// ExtractSamples extracts one row per frame of an already decoded signal.
func (e *Extractor) ExtractSamples(stem string, samples []float64, sampleRate int, duration float64, genre string) ([]models.FeatureRow, error) {
	frames, err := audio.SliceFrames(samples, sampleRate, duration)
	if err != nil {
		return nil, err
	}
	rows := make([]models.FeatureRow, 0, len(frames))
	for _, f := range frames {
		row, err := e.extractFrame(f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", f.Index, err)
		}
		row.FrameID = models.FrameID(stem, f.Index)
		row.Genre = genre
		rows = append(rows, row)
	}
	return rows, nil
}

func (e *Extractor) extractFrame(f audio.Frame) (models.FeatureRow, error) {
	var row models.FeatureRow

	spec, err := STFT(f.Samples, f.SampleRate, NFFT, HopLength, e.win)
	if err != nil {
		return row, err
	}
	power := spec.Power()
	mag := spec.Magnitude()
	freqs := spec.FrequencyBins()

	row.ChromaSTFTMean, row.ChromaSTFTVar = meanVar2D(ChromaSTFT(power, freqs))
	row.RMSMean, row.RMSVar = stat.PopMeanVariance(RMS(f.Samples, NFFT, HopLength), nil)

	centroid := SpectralCentroid(mag, freqs)
	row.SpectralCentroidMean, row.SpectralCentroidVar = stat.PopMeanVariance(centroid, nil)
	row.SpectralBandwidthMean, row.SpectralBandwidthVar = stat.PopMeanVariance(SpectralBandwidth(mag, freqs, centroid), nil)
	row.RolloffMean, row.RolloffVar = stat.PopMeanVariance(SpectralRolloff(mag, freqs, RolloffPercent), nil)
	row.ZeroCrossingRateMean, row.ZeroCrossingRateVar = stat.PopMeanVariance(ZeroCrossingRate(f.Samples, NFFT, HopLength), nil)

	harmonic, percussive, err := HPSS(f.Samples, f.SampleRate)
	if err != nil {
		return row, err
	}
	row.HarmonyMean = stat.Mean(harmonic, nil)
	_, row.HarmonyVar = stat.PopMeanVariance(percussive, nil)

	logMel := PowerToDB(applyFilterBank(power, e.melBank(f.SampleRate)), TopDB)
	row.Tempo = EstimateTempo(OnsetStrength(logMel), f.SampleRate, HopLength)

	for k, coeff := range MFCC(logMel, models.NumMFCC) {
		row.MFCCMean[k], row.MFCCVar[k] = stat.PopMeanVariance(coeff, nil)
	}
	return row, nil
}

// meanVar2D is the population mean and variance over every cell.
func meanVar2D(m [][]float64) (float64, float64) {
	var flat []float64
	for _, row := range m {
		flat = append(flat, row...)
	}
	return stat.PopMeanVariance(flat, nil)
}
