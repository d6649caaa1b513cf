package app

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/roman-kulish/gnss-constellation/internal/tracking"
)

const (
	defaultColumns    = 3
	defaultPanelSize  = 360
	defaultPointAlpha = 0.35
	defaultHeader     = 32
	defaultFooter     = 28
	defaultMargin     = 12

	jpegQuality = 98
)

// RenderConfig holds all configuration options for constellation plots
type RenderConfig struct {
	OutputFile string      // Image written on every render
	Format     ImageFormat // Image encoding, png by default
	Live       bool        // Titles panels as live views

	// Plot configuration
	Limit      float64 // Axes span [-Limit, Limit] on both I and Q
	Columns    int     // Panels per row
	PanelSize  int     // Width and height of the plot area in pixels
	PointAlpha float64 // Opacity of a single point
	FontSize   float64 // Font size in points
}

// panel is the area of one channel in the figure.
type panel struct {
	bounds image.Rectangle // Whole panel, text included
	plot   image.Rectangle // Square scatter area
	header int
	footer int
}

// ScatterRenderer draws constellation (I/Q scatter) plots, one panel per
// channel, and writes them to an image file.
type ScatterRenderer struct {
	config RenderConfig
}

var _ tracking.Renderer = (*ScatterRenderer)(nil)

// NewScatterRenderer creates a new scatter renderer with the given configuration
func NewScatterRenderer(config RenderConfig) (*ScatterRenderer, error) {
	// Set defaults for zero values
	if config.Format == "" {
		config.Format = ImagePNG
	}
	if config.Limit <= 0 {
		config.Limit = defaultLimit
	}
	if config.Columns <= 0 {
		config.Columns = defaultColumns
	}
	if config.PanelSize <= 0 {
		config.PanelSize = defaultPanelSize
	}
	if config.PointAlpha <= 0 {
		config.PointAlpha = defaultPointAlpha
	}
	if config.FontSize <= 0 {
		config.FontSize = fontSize
	}

	if _, ok := validImageFormats[config.Format]; !ok {
		return nil, fmt.Errorf("invalid image format: %s", config.Format)
	}

	return &ScatterRenderer{config: config}, nil
}

// Render draws records and replaces the output file with the new image. The
// image is written to a temporary file first so readers never see a partial
// image.
func (r *ScatterRenderer) Render(ctx context.Context, records []tracking.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := r.Draw(records)
	if err != nil {
		return fmt.Errorf("drawing constellation: %w", err)
	}

	return r.writeFile(img)
}

// Draw renders records into an image, in the order given. Records without
// samples get a placeholder panel showing their status.
func (r *ScatterRenderer) Draw(records []tracking.Record) (*image.RGBA, error) {
	columns, rows := r.grid(len(records))

	panelWidth := r.config.PanelSize + 2*defaultMargin
	panelHeight := r.config.PanelSize + defaultHeader + defaultFooter

	img := image.NewRGBA(image.Rect(0, 0, columns*panelWidth, rows*panelHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	ann, err := newAnnotator(annotatorConfig{
		FontSize: r.config.FontSize,
		Live:     r.config.Live,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	for i, rec := range records {
		x, y := (i%columns)*panelWidth, (i/columns)*panelHeight
		p := panel{
			bounds: image.Rect(x, y, x+panelWidth, y+panelHeight),
			plot: image.Rect(
				x+defaultMargin,
				y+defaultHeader,
				x+defaultMargin+r.config.PanelSize,
				y+defaultHeader+r.config.PanelSize),
			header: defaultHeader,
			footer: defaultFooter,
		}

		if len(rec.Samples) == 0 {
			draw.Draw(img, p.plot, image.NewUniform(placeholderColor), image.Point{}, draw.Src)
			if err = ann.placeholder(img, p, rec); err != nil {
				return nil, fmt.Errorf("annotating PRN %d: %w", rec.PRN, err)
			}
			continue
		}

		r.drawAxes(img, p.plot)
		r.drawPoints(img, p.plot, rec)

		if err = ann.annotate(img, p, rec); err != nil {
			return nil, fmt.Errorf("annotating PRN %d: %w", rec.PRN, err)
		}
	}

	return img, nil
}

// grid returns the panel layout for n records, at least one panel.
func (r *ScatterRenderer) grid(n int) (columns, rows int) {
	if n <= 0 {
		return 1, 1
	}
	columns = min(n, r.config.Columns)
	rows = (n + columns - 1) / columns
	return columns, rows
}

// toPixel maps an (I, Q) point to image coordinates inside area. The second
// return value is false for points outside the axes.
func (r *ScatterRenderer) toPixel(area image.Rectangle, i, q float64) (image.Point, bool) {
	limit := r.config.Limit
	if math.IsNaN(i) || math.IsNaN(q) || math.Abs(i) > limit || math.Abs(q) > limit {
		return image.Point{}, false
	}

	size := float64(area.Dx() - 1)
	x := area.Min.X + int(math.Round((i+limit)/(2*limit)*size))
	y := area.Max.Y - 1 - int(math.Round((q+limit)/(2*limit)*size))
	return image.Pt(x, y), true
}

func (r *ScatterRenderer) drawAxes(img *image.RGBA, area image.Rectangle) {
	// grid lines on every integer value
	for v := -math.Floor(r.config.Limit); v <= r.config.Limit; v++ {
		c := gridColor
		if v == 0 {
			c = axisColor
		}

		vx, _ := r.toPixel(area, v, 0)
		hy, _ := r.toPixel(area, 0, v)
		for k := area.Min.Y; k < area.Max.Y; k++ {
			img.SetRGBA(vx.X, k, c)
		}
		for k := area.Min.X; k < area.Max.X; k++ {
			img.SetRGBA(k, hy.Y, c)
		}
	}

	// unit circle, the expected magnitude of normalized samples
	steps := 4 * area.Dx()
	for s := 0; s < steps; s++ {
		a := 2 * math.Pi * float64(s) / float64(steps)
		if pt, ok := r.toPixel(area, math.Cos(a), math.Sin(a)); ok {
			img.SetRGBA(pt.X, pt.Y, circleColor)
		}
	}

	// frame
	for k := area.Min.X; k < area.Max.X; k++ {
		img.SetRGBA(k, area.Min.Y, axisColor)
		img.SetRGBA(k, area.Max.Y-1, axisColor)
	}
	for k := area.Min.Y; k < area.Max.Y; k++ {
		img.SetRGBA(area.Min.X, k, axisColor)
		img.SetRGBA(area.Max.X-1, k, axisColor)
	}
}

func (r *ScatterRenderer) drawPoints(img *image.RGBA, area image.Rectangle, rec tracking.Record) {
	c := prnColor(rec.PRN)
	for _, point := range rec.Points() {
		pt, ok := r.toPixel(area, point[0], point[1])
		if !ok {
			continue
		}

		// 2x2 dots, clipped to the plot area
		for dy := 0; dy < 2; dy++ {
			for dx := 0; dx < 2; dx++ {
				p := pt.Add(image.Pt(dx, dy))
				if !p.In(area) {
					continue
				}
				img.SetRGBA(p.X, p.Y, blend(img.RGBAAt(p.X, p.Y), c, r.config.PointAlpha))
			}
		}
	}
}

func (r *ScatterRenderer) writeFile(img image.Image) (err error) {
	dir := filepath.Dir(r.config.OutputFile)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.config.OutputFile)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err = encode(tmp, img, r.config.Format); err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err = os.Rename(tmp.Name(), r.config.OutputFile); err != nil {
		return fmt.Errorf("replacing output file: %w", err)
	}
	return nil
}

func encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{
			Quality: jpegQuality,
		})
	default:
		return png.Encode(w, img)
	}
}
