package app

import (
	"fmt"
	"image"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/gnss-constellation/internal/iq"
	"github.com/roman-kulish/gnss-constellation/internal/tracking"
)

const (
	dpi      = 72.0
	fontSize = 14.0
)

type annotatorConfig struct {
	FontSize float64
	Live     bool
}

// annotator draws panel titles and info lines.
type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.NewUniform(textColor))

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingFull,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

// lineHeight is the pixel height of one line of text.
func (a *annotator) lineHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

// annotate writes the title above and the info line below the plot area of
// a panel.
func (a *annotator) annotate(img *image.RGBA, p panel, rec tracking.Record) error {
	a.context.SetClip(p.bounds)
	a.context.SetDst(img)

	ops := []struct {
		msg  string
		text string
		y    int
	}{
		{"drawing title", a.title(rec), p.bounds.Min.Y + p.header/2},
		{"drawing info", info(rec), p.bounds.Max.Y - p.footer/2},
	}
	for _, op := range ops {
		if err := a.drawCentered(op.text, p.bounds.Min.X+p.bounds.Dx()/2, op.y); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}
	return nil
}

// placeholder writes the status in the middle of a panel without samples.
func (a *annotator) placeholder(img *image.RGBA, p panel, rec tracking.Record) error {
	a.context.SetClip(p.bounds)
	a.context.SetDst(img)

	if err := a.drawCentered(a.title(rec), p.bounds.Min.X+p.bounds.Dx()/2, p.bounds.Min.Y+p.header/2); err != nil {
		return fmt.Errorf("drawing title: %w", err)
	}

	center := p.plot.Min.Add(p.plot.Size().Div(2))
	if err := a.drawCentered(rec.Status.String(), center.X, center.Y); err != nil {
		return fmt.Errorf("drawing status: %w", err)
	}
	return nil
}

// drawCentered draws text centered horizontally on x and vertically on y.
func (a *annotator) drawCentered(text string, x, y int) error {
	width := font.MeasureString(a.fontFace, text).Round()
	metrics := a.fontFace.Metrics()
	baseline := y + a.lineHeight()/2 - metrics.Descent.Round()

	_, err := a.context.DrawString(text, freetype.Pt(x-width/2, baseline))
	return err
}

func (a *annotator) title(rec tracking.Record) string {
	if a.config.Live {
		return fmt.Sprintf("Live Constellation (PRN %d)", rec.PRN)
	}
	return fmt.Sprintf("PRN %d", rec.PRN)
}

func info(rec tracking.Record) string {
	s := fmt.Sprintf("%s | %s samples", rec.Status, humanize.Comma(int64(len(rec.Samples))))
	if len(rec.Samples) > 0 {
		// phase lock is scale invariant, so the plotted samples give the
		// same value as the raw ones
		s += fmt.Sprintf(" | lock %0.2f", iq.Stats(rec.Samples).PhaseLock)
	}
	return s
}
