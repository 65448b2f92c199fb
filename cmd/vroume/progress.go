package main

import (
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress draws one bar per named task. Bars are created on first report
// because totals are only known once a stage starts.
type progress struct {
	mu   sync.Mutex
	p    *mpb.Progress
	bars map[string]*mpb.Bar
}

func newProgress() *progress {
	return &progress{
		p:    mpb.New(mpb.WithWidth(64)),
		bars: make(map[string]*mpb.Bar),
	}
}

func (pr *progress) report(name string, done, total int) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	bar, ok := pr.bars[name]
	if !ok {
		bar = pr.p.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(name+": ", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.AverageETA(decor.ET_STYLE_GO),
			),
		)
		pr.bars[name] = bar
	}
	bar.SetCurrent(int64(done))
}

// wait stops unfinished bars so an aborted stage does not block the render.
func (pr *progress) wait() {
	pr.mu.Lock()
	for _, bar := range pr.bars {
		if !bar.Completed() {
			bar.Abort(false)
		}
	}
	pr.mu.Unlock()
	pr.p.Wait()
}
