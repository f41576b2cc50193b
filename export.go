package changemap

import (
	"fmt"

	"github.com/wgdzlh/changemap/log"

	"go.uber.org/zap"
)

// 变化图渲染器
type Exporter struct {
	palette *Palette
	logTag  string
}

// palette为nil时使用默认调色板
func NewExporter(palette *Palette) *Exporter {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Exporter{
		palette: palette,
		logTag:  "Exporter:",
	}
}

func (e *Exporter) Palette() *Palette {
	return e.palette
}

func (e *Exporter) resolve(m *ChangeMap, opts OutputOptions) (OutputOptions, error) {
	if m == nil {
		return opts, fmt.Errorf("%w: nil change map", ErrValidation)
	}
	if err := m.ready(); err != nil {
		return opts, err
	}
	if opts.Format != FormatPNG && opts.Format != FormatPDF {
		return opts, fmt.Errorf("%w: %w: %s", ErrValidation, ErrBadFormat, opts.Format)
	}
	if opts.Filename == "" {
		return opts, fmt.Errorf("%w: empty output filename", ErrValidation)
	}
	if opts.Width == 0 {
		opts.Width = m.Width()
	}
	if opts.Height == 0 {
		opts.Height = m.Height()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return opts, fmt.Errorf("%w: output size %dx%d", ErrValidation, opts.Height, opts.Width)
	}
	if err := e.palette.Validate(); err != nil {
		return opts, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return opts, nil
}

// 按变化系数着色绘制脊线段，PNG为栅格描线，PDF为矢量描线
func (e *Exporter) ExportRidgeLines(m *ChangeMap, opts OutputOptions) (err error) {
	if opts, err = e.resolve(m, opts); err != nil {
		return
	}
	s := newSurface(opts)
	defer s.release()
	var c lineCanvas
	switch opts.Format {
	case FormatPNG:
		c = newRasterLineCanvas(opts.Width, opts.Height)
	case FormatPDF:
		c = newPdfCanvas(opts.Width, opts.Height)
	}
	if err = s.create(c); err != nil {
		return
	}
	c.paint(e.palette.BackgroundColour())
	var (
		line *ChangeMapLine
		segs int
		n    = m.NumLines()
	)
	for i := 0; i < n; i++ {
		if line, err = m.Line(i); err != nil {
			log.Error(e.logTag+"compute line change failed", zap.Int("line", i), zap.Error(err))
			return
		}
		for j := 0; j < line.NumSegments(); j++ {
			x0, y0, x1, y1 := line.Endpoints(j)
			c.stroke(x0, y0, x1, y1, e.palette.Colour(line.Change[j]))
		}
		segs += line.NumSegments()
	}
	if err = s.drawn(); err != nil {
		return
	}
	if err = s.finalize(); err != nil {
		log.Error(e.logTag+"write ridge lines failed", zap.String("out", opts.Filename), zap.Error(err))
		return
	}
	log.Info(e.logTag+"exported ridge lines", zap.String("out", opts.Filename), zap.Stringer("format", opts.Format),
		zap.Int("lines", n), zap.Int("segments", segs))
	return
}

// 在各段代表像素处直接写入颜色，生成稀疏掩膜；PDF输出时将掩膜作为整页图片
func (e *Exporter) ExportRidgeMask(m *ChangeMap, opts OutputOptions) (err error) {
	if opts, err = e.resolve(m, opts); err != nil {
		return
	}
	s := newSurface(opts)
	defer s.release()
	c := newMaskCanvas(opts.Width, opts.Height, opts.Format)
	if err = s.create(c); err != nil {
		return
	}
	c.paint(e.palette.BackgroundColour())
	var (
		line     *ChangeMapLine
		row, col int
		segs     int
		n        = m.NumLines()
	)
	for i := 0; i < n; i++ {
		if line, err = m.Line(i); err != nil {
			log.Error(e.logTag+"compute line change failed", zap.Int("line", i), zap.Error(err))
			return
		}
		for j := 0; j < line.NumSegments(); j++ {
			row, col = line.Pixel(j)
			if err = c.put(row, col, e.palette.Colour(line.Change[j]).Packed()); err != nil {
				return
			}
		}
		segs += line.NumSegments()
	}
	if err = s.drawn(); err != nil {
		return
	}
	if err = s.finalize(); err != nil {
		log.Error(e.logTag+"write ridge mask failed", zap.String("out", opts.Filename), zap.Error(err))
		return
	}
	log.Info(e.logTag+"exported ridge mask", zap.String("out", opts.Filename), zap.Stringer("format", opts.Format),
		zap.Int("lines", n), zap.Int("segments", segs))
	return
}
