package changemap

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/wgdzlh/changemap/utils"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
	"go.uber.org/multierr"
)

// 输出画布生命周期：UNINITIALIZED → SURFACE_CREATED → DRAWN → FINALIZED，
// 不可跳步或回退，FINALIZED为终态
type surfaceState int

const (
	stateUninitialized surfaceState = iota
	stateSurfaceCreated
	stateDrawn
	stateFinalized
)

func (s surfaceState) String() string {
	switch s {
	case stateUninitialized:
		return "UNINITIALIZED"
	case stateSurfaceCreated:
		return "SURFACE_CREATED"
	case stateDrawn:
		return "DRAWN"
	case stateFinalized:
		return "FINALIZED"
	default:
		return fmt.Sprintf("surfaceState(%d)", int(s))
	}
}

type canvas interface {
	paint(bg Colour)
	encode(w io.Writer) error
}

// 可描线的画布
type lineCanvas interface {
	canvas
	stroke(x0, y0, x1, y1 float64, c Colour)
}

type surface struct {
	state  surfaceState
	opts   OutputOptions
	canvas canvas
}

func newSurface(opts OutputOptions) *surface {
	return &surface{opts: opts}
}

func (s *surface) transition(from, to surfaceState) error {
	if s.state != from {
		return fmt.Errorf("%w: %w: %s -> %s while %s", ErrInternalConsistency, ErrSurfaceState, from, to, s.state)
	}
	s.state = to
	return nil
}

func (s *surface) create(c canvas) (err error) {
	if err = s.transition(stateUninitialized, stateSurfaceCreated); err != nil {
		return
	}
	s.canvas = c
	return
}

func (s *surface) drawn() error {
	return s.transition(stateSurfaceCreated, stateDrawn)
}

// 编码并写出文件，无论成败都进入终态
func (s *surface) finalize() (err error) {
	if err = s.transition(stateDrawn, stateFinalized); err != nil {
		return
	}
	c := s.canvas
	s.canvas = nil
	return writeFileAtomic(s.opts.Filename, c.encode)
}

// 任意退出路径上释放画布；未完成的画布直接丢弃，不产生输出文件
func (s *surface) release() {
	s.state = stateFinalized
	s.canvas = nil
}

// 先写同目录临时文件再改名，失败时删除临时文件
func writeFileAtomic(path string, encode func(io.Writer) error) (err error) {
	tmp := utils.GetTmpSibling(path)
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()
	bw := bufio.NewWriter(f)
	err = encode(bw)
	err = multierr.Append(err, bw.Flush())
	err = multierr.Append(err, f.Close())
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrIO, path, err)
	}
	return
}

func rgbInts(c Colour) (r, g, b int) {
	p := c.Packed()
	return int(p.R), int(p.G), int(p.B)
}

// 栅格描线画布（PNG）
type rasterLineCanvas struct {
	dc *gg.Context
}

func newRasterLineCanvas(width, height int) *rasterLineCanvas {
	dc := gg.NewContext(width, height)
	dc.SetLineWidth(1)
	dc.SetLineCapRound()
	return &rasterLineCanvas{dc: dc}
}

func (c *rasterLineCanvas) paint(bg Colour) {
	c.dc.SetRGB(bg.R, bg.G, bg.B)
	c.dc.Clear()
}

func (c *rasterLineCanvas) stroke(x0, y0, x1, y1 float64, col Colour) {
	c.dc.SetRGB(col.R, col.G, col.B)
	c.dc.DrawLine(x0, y0, x1, y1)
	c.dc.Stroke()
}

func (c *rasterLineCanvas) encode(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

// PDF单页画布，单位为pt，页面与影像同尺寸
type pdfCanvas struct {
	pdf    *fpdf.Fpdf
	width  float64
	height float64
}

func newPdfCanvas(width, height int) *pdfCanvas {
	w, h := float64(width), float64(height)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: PDF_UNIT,
		Size:    fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetLineWidth(1)
	pdf.SetLineCapStyle("round")
	return &pdfCanvas{pdf: pdf, width: w, height: h}
}

func (c *pdfCanvas) paint(bg Colour) {
	c.pdf.SetFillColor(rgbInts(bg))
	c.pdf.Rect(0, 0, c.width, c.height, "F")
}

func (c *pdfCanvas) stroke(x0, y0, x1, y1 float64, col Colour) {
	c.pdf.SetDrawColor(rgbInts(col))
	c.pdf.Line(x0, y0, x1, y1)
}

// 将栅格作为图片铺满整页
func (c *pdfCanvas) placeImage(img image.Image) (err error) {
	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	c.pdf.RegisterImageOptionsReader(MASK_IMG_NAME, opts, &buf)
	c.pdf.ImageOptions(MASK_IMG_NAME, 0, 0, c.width, c.height, false, opts, 0, "")
	return c.pdf.Error()
}

func (c *pdfCanvas) encode(w io.Writer) error {
	return c.pdf.Output(w)
}

// 掩膜画布：直接写像素缓冲，每像素4字节，前3字节为RGB
type maskCanvas struct {
	img    *image.RGBA
	format OutputFormat
}

func newMaskCanvas(width, height int, format OutputFormat) *maskCanvas {
	return &maskCanvas{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		format: format,
	}
}

func (c *maskCanvas) paint(bg Colour) {
	p := bg.Packed()
	pix := c.img.Pix
	for off := 0; off+4 <= len(pix); off += 4 {
		p.Put(pix[off : off+4])
		pix[off+3] = 0xff
	}
}

// 覆盖写入，后写者生效
func (c *maskCanvas) put(row, col int, p PackedRGB) error {
	if !(image.Point{X: col, Y: row}).In(c.img.Rect) {
		return fmt.Errorf("%w: mask pixel (%d,%d) outside %v", ErrOutOfRange, row, col, c.img.Rect.Size())
	}
	off := c.img.PixOffset(col, row)
	p.Put(c.img.Pix[off : off+4])
	return nil
}

func (c *maskCanvas) encode(w io.Writer) error {
	switch c.format {
	case FormatPNG:
		return png.Encode(w, c.img)
	case FormatPDF:
		size := c.img.Rect.Size()
		pc := newPdfCanvas(size.X, size.Y)
		if err := pc.placeImage(c.img); err != nil {
			return err
		}
		return pc.encode(w)
	default:
		return fmt.Errorf("%w: %s", ErrBadFormat, c.format)
	}
}
