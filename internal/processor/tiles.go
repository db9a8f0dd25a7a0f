package processor

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/woozymasta/hmapgen/internal/geo"

	"github.com/rs/zerolog/log"
)

// ErrNonFiniteElevation is returned when a sample overflows or becomes NaN.
var ErrNonFiniteElevation = errors.New("non-finite elevation")

const defaultStripRows = 16

// ProgressFunc receives the number of completed rows out of total.
// It is called from the goroutine that runs Generate, never concurrently.
type ProgressFunc func(done, total int)

// GenerateOptions tunes the elevation pass.
type GenerateOptions struct {
	Progress  ProgressFunc
	Workers   int // 0 means one per CPU
	StripRows int // rows per job, 0 means default
}

// strip is a horizontal band of rows [From, To).
type strip struct {
	From, To int
}

type stripResult struct {
	Err  error
	Rows int
}

// Generate computes the elevation of every pixel. Rows are split into strips
// and processed by a pool of workers, each writing only its own rows.
func Generate(comp *Compositor, proj geo.Projector, opts GenerateOptions) (*Field, error) {
	width, height := proj.Size()
	field := NewField(width, height)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	rows := opts.StripRows
	if rows <= 0 {
		rows = defaultStripRows
	}

	strips := make([]strip, 0, (height+rows-1)/rows)
	for from := 0; from < height; from += rows {
		strips = append(strips, strip{From: from, To: min(from+rows, height)})
	}
	workers = min(workers, len(strips))

	log.Debug().
		Int("width", width).
		Int("height", height).
		Int("workers", workers).
		Int("strips", len(strips)).
		Msg("Starting elevation pass")

	jobs := make(chan strip, len(strips))
	results := make(chan stripResult, len(strips))

	go func() {
		for _, s := range strips {
			jobs <- s
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				results <- stripResult{Rows: s.To - s.From, Err: fillStrip(field, comp, proj, s)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		done     int
		firstErr error
	)
	for res := range results {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		done += res.Rows
		if opts.Progress != nil {
			opts.Progress(done, height)
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}

	return field, nil
}

func fillStrip(field *Field, comp *Compositor, proj geo.Projector, s strip) error {
	for j := s.From; j < s.To; j++ {
		for i := 0; i < field.Width; i++ {
			e, band := comp.Elevation(proj.Point(i, j), i, j)
			if math.IsNaN(e) || math.IsInf(e, 0) {
				return fmt.Errorf("%w at pixel (%d, %d)", ErrNonFiniteElevation, i, j)
			}
			field.Set(i, j, e, band)
		}
	}
	return nil
}
