package changemap

import (
	"fmt"
	"math"

	"github.com/wgdzlh/changemap/log"

	"go.uber.org/zap"
)

// 变化图：持有灾前/灾后影像与脊线数据，按需计算每段脊线的变化系数。
// 影像与脊线由调用方持有，这里只保存引用。
type ChangeMap struct {
	ridges *FeatureSet
	pre    *Raster
	post   *Raster
	nanVal float64

	height      int
	width       int
	calibration float64 // NaN表示需要重新标定
	logTag      string
}

// 单条脊线的变化结果，用完即弃
type ChangeMapLine struct {
	Rows   []uint32 // 定点行坐标，长度为段数+1
	Cols   []uint32
	Change []float64 // 每段的变化系数
}

func NewChangeMap() *ChangeMap {
	return &ChangeMap{
		nanVal:      DefaultNanValue,
		height:      -1,
		width:       -1,
		calibration: math.NaN(),
		logTag:      "ChangeMap:",
	}
}

func (m *ChangeMap) invalidate() {
	m.calibration = math.NaN()
}

func (m *ChangeMap) Height() int { return m.height }

func (m *ChangeMap) Width() int { return m.width }

func (m *ChangeMap) NanValue() float64 { return m.nanVal }

func (m *ChangeMap) NumLines() int {
	if m.ridges == nil {
		return 0
	}
	return m.ridges.Len()
}

// 设置脊线数据，影像尺寸取自其元数据
func (m *ChangeMap) SetRidgeData(fs *FeatureSet) (err error) {
	if fs == nil {
		return fmt.Errorf("%w: nil ridge data", ErrValidation)
	}
	if fs.Type != DataLines {
		return fmt.Errorf("%w: %w (got %s)", ErrValidation, ErrNotLineData, fs.Type)
	}
	rows, cols, ok := fs.Extent()
	if !ok {
		return fmt.Errorf("%w: %w", ErrValidation, ErrNoExtent)
	}
	for _, r := range []*Raster{m.pre, m.post} {
		if r != nil && (r.Rows != rows || r.Cols != cols) {
			return fmt.Errorf("%w: %w: ridge data is %dx%d, image is %dx%d",
				ErrValidation, ErrSizeMismatch, rows, cols, r.Rows, r.Cols)
		}
	}
	m.height = rows
	m.width = cols
	m.ridges = fs
	m.invalidate()
	log.Debug(m.logTag+"set ridge data", zap.Int("lines", fs.Len()), zap.Int("rows", rows), zap.Int("cols", cols))
	return
}

func (m *ChangeMap) checkImage(r *Raster) error {
	if r == nil {
		return fmt.Errorf("%w: nil image", ErrValidation)
	}
	if r.Rows != m.height || r.Cols != m.width {
		return fmt.Errorf("%w: %w: expected %dx%d, got %dx%d",
			ErrValidation, ErrSizeMismatch, m.height, m.width, r.Rows, r.Cols)
	}
	if len(r.Data) != r.Rows*r.Cols {
		return fmt.Errorf("%w: image buffer holds %d samples, want %d",
			ErrValidation, len(r.Data), r.Rows*r.Cols)
	}
	return nil
}

func (m *ChangeMap) SetPreImage(pre *Raster) (err error) {
	if err = m.checkImage(pre); err != nil {
		return
	}
	m.pre = pre
	m.invalidate()
	return
}

func (m *ChangeMap) SetPostImage(post *Raster) (err error) {
	if err = m.checkImage(post); err != nil {
		return
	}
	m.post = post
	m.invalidate()
	return
}

// 设置非有限像素的替代值，值未变化时不做处理
func (m *ChangeMap) SetNan(v float64) (err error) {
	if v == m.nanVal {
		return
	}
	if !isNormal(v) || v < 0 {
		return fmt.Errorf("%w: %w (got %v)", ErrValidation, ErrBadNanValue, v)
	}
	m.nanVal = v
	m.invalidate()
	return
}

func (m *ChangeMap) ready() error {
	if m.ridges == nil || m.pre == nil || m.post == nil {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingInput)
	}
	return nil
}

// 单像素灾前/灾后振幅比的平方
func (m *ChangeMap) squareRatio(row, col int) (r float64, err error) {
	num := float64(m.pre.At(row, col))
	den := float64(m.post.At(row, col))
	if !isNormal(num) {
		num = m.nanVal
	}
	if !isNormal(den) {
		den = m.nanVal
	}
	r = (RatioEpsilon + num) / (RatioEpsilon + den)
	r = r * r
	if !isNormal(r) || r <= 0 {
		err = fmt.Errorf("%w: square ratio %v at (%d,%d)", ErrInternalConsistency, r, row, col)
	}
	return
}

// 全图平均比值平方，作为变化系数的基准
func (m *ChangeMap) recalibrate() (err error) {
	var (
		acc kahanSum
		r   float64
	)
	for i := 0; i < m.height; i++ {
		for j := 0; j < m.width; j++ {
			if r, err = m.squareRatio(i, j); err != nil {
				return
			}
			acc.Add(r)
		}
	}
	cal := acc.Sum() / (float64(m.height) * float64(m.width))
	if !isNormal(cal) || cal <= 0 {
		return fmt.Errorf("%w: calibration %v", ErrInternalConsistency, cal)
	}
	m.calibration = cal
	log.Info(m.logTag+"calibrated", zap.Float64("calibration", cal), zap.Float64("nan", m.nanVal),
		zap.Int("rows", m.height), zap.Int("cols", m.width))
	return
}

// 返回当前标定值，必要时重新计算
func (m *ChangeMap) Calibration() (cal float64, err error) {
	if err = m.ready(); err != nil {
		return
	}
	if math.IsNaN(m.calibration) {
		if err = m.recalibrate(); err != nil {
			return
		}
	}
	return m.calibration, nil
}

// 计算第index条脊线每段的变化系数
func (m *ChangeMap) Line(index int) (line *ChangeMapLine, err error) {
	if err = m.ready(); err != nil {
		return
	}
	if index < 0 || index >= m.ridges.Len() {
		return nil, fmt.Errorf("%w: line %d of %d", ErrOutOfRange, index, m.ridges.Len())
	}
	cal, err := m.Calibration()
	if err != nil {
		return
	}
	pts := m.ridges.Lines[index]
	np := len(pts)
	ns := np - 1
	if ns < 0 {
		ns = 0
	}
	line = &ChangeMapLine{
		Rows:   make([]uint32, np),
		Cols:   make([]uint32, np),
		Change: make([]float64, ns),
	}
	for i, p := range pts {
		line.Rows[i] = p.Row
		line.Cols[i] = p.Col
	}
	var (
		row, col int
		r        float64
	)
	for i := 0; i < ns; i++ {
		row, col = line.Pixel(i)
		if row >= m.height || col >= m.width {
			return nil, fmt.Errorf("%w: line %d segment %d at (%d,%d) outside %dx%d image",
				ErrOutOfRange, index, i, row, col, m.height, m.width)
		}
		if r, err = m.squareRatio(row, col); err != nil {
			return nil, err
		}
		d := 1 - cal/r
		if !isFinite(d) {
			return nil, fmt.Errorf("%w: change %v on line %d segment %d", ErrInternalConsistency, d, index, i)
		}
		line.Change[i] = d
	}
	return
}

func (l *ChangeMapLine) NumSegments() int {
	return len(l.Change)
}

// 段的代表像素（两端点定点坐标相加后右移）
func (l *ChangeMapLine) Pixel(segment int) (row, col int) {
	row = midpointPixel(l.Rows[segment], l.Rows[segment+1])
	col = midpointPixel(l.Cols[segment], l.Cols[segment+1])
	return
}

// 段两端点的像素坐标，x为列、y为行
func (l *ChangeMapLine) Endpoints(segment int) (x0, y0, x1, y1 float64) {
	x0, y0 = fromFixed(l.Cols[segment]), fromFixed(l.Rows[segment])
	x1, y1 = fromFixed(l.Cols[segment+1]), fromFixed(l.Rows[segment+1])
	return
}
