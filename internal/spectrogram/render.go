package spectrogram

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	sg "github.com/eligwz/spectrogram"
	"golang.org/x/sync/errgroup"

	"github.com/nlouis56/vroume/internal/audio"
	"github.com/nlouis56/vroume/pkg/logger"
	"github.com/nlouis56/vroume/pkg/utils"
)

// Config sizes the rendered images.
type Config struct {
	Width   int
	Height  int     // also the number of frequency bins
	Length  float64 // seconds of audio per image
	Workers int     // genre folders rendered in parallel
}

func DefaultConfig() Config {
	return Config{
		Width:   1200,
		Height:  800,
		Length:  30,
		Workers: runtime.NumCPU(),
	}
}

type Renderer struct {
	cfg Config
	log *logger.Logger
}

func NewRenderer(cfg Config, log *logger.Logger) *Renderer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Renderer{cfg: cfg, log: log}
}

// RenderSamples draws one spectrogram of samples to a PNG file.
func (r *Renderer) RenderSamples(samples []float64, sampleRate int, outPath string) error {
	img := sg.NewImage128(image.Rect(0, 0, r.cfg.Width, r.cfg.Height))

	black := sg.ParseColor("000000")
	draw.Draw(img, img.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	sg.Drawfft(
		img,
		samples,
		uint32(sampleRate),
		uint32(r.cfg.Height),
		false, // Hamming window
		false, // FFT
		true,  // magnitude
		false, // linear scale
	)
	if err := sg.SavePng(img, outPath); err != nil {
		return fmt.Errorf("saving %s: %w", outPath, err)
	}
	return nil
}

// RenderFile writes <stem>_<i>.png for every full Length-second slice of a
// WAV file. Files shorter than one slice produce nothing.
func (r *Renderer) RenderFile(path, outDir string) ([]string, error) {
	samples, sr, err := audio.ReadWavAsFloat64(path)
	if err != nil {
		return nil, err
	}
	sliceLen := audio.FrameLength(r.cfg.Length, sr)
	if sliceLen <= 0 {
		return nil, audio.ErrInvalidDuration
	}
	if len(samples) < sliceLen {
		r.log.Debugf("%s is shorter than %.0fs, skipping", path, r.cfg.Length)
		return nil, nil
	}
	if err := utils.MakeDir(outDir); err != nil {
		return nil, err
	}

	stem := utils.FileStem(path)
	var written []string
	for i := 0; i < len(samples)/sliceLen; i++ {
		out := filepath.Join(outDir, fmt.Sprintf("%s_%d.png", stem, i))
		if err := r.RenderSamples(samples[i*sliceLen:(i+1)*sliceLen], sr, out); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

// RenderLibrary renders every genre folder of inputDir into a matching
// folder of outputDir and returns the number of images written.
func (r *Renderer) RenderLibrary(ctx context.Context, inputDir, outputDir string) (int, error) {
	genres, err := utils.ListSubdirs(inputDir)
	if err != nil {
		return 0, err
	}
	var total atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.cfg.Workers))
	for _, genre := range genres {
		g.Go(func() error {
			files, err := utils.ListFiles(filepath.Join(inputDir, genre), ".wav")
			if err != nil {
				return err
			}
			outDir := filepath.Join(outputDir, strings.TrimPrefix(genre, "DLDS-"))
			for _, f := range files {
				if err := ctx.Err(); err != nil {
					return err
				}
				written, err := r.RenderFile(f, outDir)
				if err != nil {
					r.log.Warnf("Skipping %s: %v", f, err)
					continue
				}
				total.Add(int64(len(written)))
			}
			r.log.Infof("Rendered %s", genre)
			return nil
		})
	}
	err = g.Wait()
	return int(total.Load()), err
}
