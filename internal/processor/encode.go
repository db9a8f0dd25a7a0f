package processor

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/woozymasta/hmapgen/internal/config"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrEncodingFailure wraps every failure to produce the output raster.
var ErrEncodingFailure = errors.New("encoding failure")

// Encode writes img to w in a lossless format.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case config.FormatPNG, "":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case config.FormatWebP:
		return webp.Encode(w, img, &webp.Options{Lossless: true})
	case config.FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case config.FormatBMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// ContentType returns the MIME type of an output format.
func ContentType(format string) string {
	switch format {
	case config.FormatWebP:
		return "image/webp"
	case config.FormatTIFF:
		return "image/tiff"
	case config.FormatBMP:
		return "image/bmp"
	default:
		return "image/png"
	}
}

// WriteImage encodes img and atomically publishes it at path.
func WriteImage(path string, img image.Image, format string) error {
	err := writeAtomic(path, func(w io.Writer) error {
		return Encode(w, img, format)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodingFailure, path, err)
	}
	return nil
}

// writeAtomic writes into a temporary file next to path and renames it over
// path only after the write, sync and close all succeeded. On failure the
// temporary file is removed and any previous file at path is left untouched.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn().Err(rmErr).Str("path", tmpName).Msg("Failed to remove temporary file")
			}
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
