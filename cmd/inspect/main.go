package main

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"os"

	"github.com/woozymasta/hmapgen/internal/processor"

	"github.com/jessevdk/go-flags"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input  string `short:"i" long:"in"     description:"Heightmap raster to inspect" required:"true"`
	Meta   string `short:"m" long:"meta"   description:"Metadata sidecar path (defaults to <in>.json when present)"`
	Output string `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
}

// Report summarizes the intensities of a heightmap.
type Report struct {
	Bands     []BandReport `json:"bands,omitempty" yaml:"bands,omitempty"`
	Source    string       `json:"source" yaml:"source"`
	Format    string       `json:"format" yaml:"format"`
	Mean      float64      `json:"mean" yaml:"mean"`
	Width     int          `json:"width" yaml:"width"`
	Height    int          `json:"height" yaml:"height"`
	Open      int          `json:"open_pixels" yaml:"open_pixels"`
	Min       uint8        `json:"min" yaml:"min"`
	Max       uint8        `json:"max" yaml:"max"`
	Grayscale bool         `json:"grayscale" yaml:"grayscale"`
	Opaque    bool         `json:"opaque" yaml:"opaque"`
}

// BandReport counts pixels whose intensity falls inside a reserved band.
type BandReport struct {
	Terrain string `json:"terrain" yaml:"terrain"`
	Min     uint8  `json:"min" yaml:"min"`
	Max     uint8  `json:"max" yaml:"max"`
	Pixels  int    `json:"pixels" yaml:"pixels"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	f, err := os.Open(opts.Input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
		os.Exit(1)
	}
	img, format, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding %s: %v\n", opts.Input, err)
		os.Exit(1)
	}

	metaPath := opts.Meta
	if metaPath == "" {
		if _, err := os.Stat(processor.MetadataPath(opts.Input)); err == nil {
			metaPath = processor.MetadataPath(opts.Input)
		}
	}

	var meta *processor.Metadata
	if metaPath != "" {
		meta, err = processor.ReadMetadata(metaPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading metadata: %v\n", err)
			os.Exit(1)
		}
	}

	report := inspect(img, meta)
	report.Source = opts.Input
	report.Format = format

	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(report)
	} else {
		outputData, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling report: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Report for %s written to %s\n", opts.Input, opts.Output)
	} else {
		fmt.Println(string(outputData))
	}
}

func inspect(img image.Image, meta *processor.Metadata) Report {
	b := img.Bounds()
	r := Report{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Min:       255,
		Grayscale: true,
		Opaque:    true,
	}

	if meta != nil {
		for _, band := range meta.Bands {
			r.Bands = append(r.Bands, BandReport{Terrain: band.Terrain, Min: band.Min, Max: band.Max})
		}
	}

	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			v := uint8(cr >> 8)
			if cr != cg || cg != cb {
				r.Grayscale = false
			}
			if ca != 0xffff {
				r.Opaque = false
			}

			r.Min = min(r.Min, v)
			r.Max = max(r.Max, v)
			sum += float64(v)

			inBand := false
			for i := range r.Bands {
				if v >= r.Bands[i].Min && v <= r.Bands[i].Max {
					r.Bands[i].Pixels++
					inBand = true
					break
				}
			}
			if !inBand {
				r.Open++
			}
		}
	}

	if n := r.Width * r.Height; n > 0 {
		r.Mean = sum / float64(n)
	} else {
		r.Min = 0
	}

	return r
}
