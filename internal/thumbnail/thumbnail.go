package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// Size bounds the longest edge of a derived image. Images already within
// the bound are copied unchanged, never enlarged.
type Size struct {
	Label   string
	MaxEdge int
}

type Output struct {
	Label  string
	Data   []byte
	Width  int
	Height int
}

type Processor interface {
	// Dimensions decodes only the image header.
	Dimensions(data []byte) (width, height int, err error)
	Generate(ctx context.Context, data []byte, filename string, sizes []Size) ([]Output, error)
}

// SizesFromConfig turns the label -> max edge map into a stable list.
func SizesFromConfig(cfg map[string]int) []Size {
	sizes := make([]Size, 0, len(cfg))
	for label, edge := range cfg {
		sizes = append(sizes, Size{Label: label, MaxEdge: edge})
	}
	sort.Slice(sizes, func(i, j int) bool {
		return sizes[i].Label < sizes[j].Label
	})
	return sizes
}

// Filename derives "<base>_<label>.<ext>" from the parent filename.
func Filename(parent, label string) string {
	ext := filepath.Ext(parent)
	base := strings.TrimSuffix(parent, ext)
	return base + "_" + label + ext
}

type imagingProcessor struct{}

func NewImaging() Processor {
	return imagingProcessor{}
}

func (imagingProcessor) Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func (imagingProcessor) Generate(ctx context.Context, data []byte, filename string, sizes []Size) ([]Output, error) {
	if len(sizes) == 0 {
		return nil, nil
	}
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.PNG
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	outputs := make([]Output, 0, len(sizes))
	for _, size := range sizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if size.MaxEdge <= 0 {
			continue
		}
		resized := imaging.Fit(src, size.MaxEdge, size.MaxEdge, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, format); err != nil {
			return nil, fmt.Errorf("encode %s: %w", size.Label, err)
		}
		bounds := resized.Bounds()
		outputs = append(outputs, Output{
			Label:  size.Label,
			Data:   buf.Bytes(),
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}
	return outputs, nil
}
