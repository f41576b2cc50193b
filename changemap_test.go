package changemap

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledRaster(rows, cols int, v float32) *Raster {
	r := NewRaster(rows, cols)
	r.Fill(v)
	return r
}

func newTestMap(t *testing.T, fs *FeatureSet, pre, post *Raster) *ChangeMap {
	t.Helper()
	m := NewChangeMap()
	require.NoError(t, m.SetRidgeData(fs))
	require.NoError(t, m.SetPreImage(pre))
	require.NoError(t, m.SetPostImage(post))
	return m
}

func TestSquareRatioOfEqualSamplesIsOne(t *testing.T) {
	for _, a := range []float32{1e-30, 0.5, 1, 3, 1234.5, 3e38} {
		pre := filledRaster(1, 1, a)
		post := filledRaster(1, 1, a)
		m := newTestMap(t, NewLineSet(1, 1), pre, post)
		r, err := m.squareRatio(0, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, r, "a=%v", a)
	}
}

func TestCalibrationOfIdenticalImages(t *testing.T) {
	const rows, cols = 1000, 1000
	rng := rand.New(rand.NewSource(7))
	pre := NewRaster(rows, cols)
	for i := range pre.Data {
		pre.Data[i] = rng.Float32()*500 + 0.01
	}
	post := &Raster{Rows: rows, Cols: cols, Data: append([]float32(nil), pre.Data...)}
	m := newTestMap(t, NewLineSet(rows, cols), pre, post)

	cal, err := m.Calibration()
	require.NoError(t, err)
	assert.Equal(t, 1.0, cal)
}

func TestCalibrationSubstitutesNonFiniteSamples(t *testing.T) {
	pre := filledRaster(2, 2, 1)
	post := filledRaster(2, 2, 1)
	pre.Set(0, 0, float32(math.NaN()))
	post.Set(1, 1, float32(math.Inf(1)))
	m := newTestMap(t, NewLineSet(2, 2), pre, post)

	// nan替代值为0：(1+0)/(1+1) 与 (1+1)/(1+0)
	cal, err := m.Calibration()
	require.NoError(t, err)
	assert.InDelta(t, (1+1+0.25+4)/4.0, cal, 1e-12)

	require.NoError(t, m.SetNan(1))
	assert.True(t, math.IsNaN(m.calibration))
	cal, err = m.Calibration()
	require.NoError(t, err)
	assert.Equal(t, 1.0, cal)
}

func TestCalibrationInvalidatedBySetters(t *testing.T) {
	m := newTestMap(t, NewLineSet(2, 2), filledRaster(2, 2, 1), filledRaster(2, 2, 1))
	_, err := m.Calibration()
	require.NoError(t, err)

	require.NoError(t, m.SetPostImage(filledRaster(2, 2, 3)))
	assert.True(t, math.IsNaN(m.calibration))
	cal, err := m.Calibration()
	require.NoError(t, err)
	assert.Equal(t, 0.25, cal)

	require.NoError(t, m.SetRidgeData(NewLineSet(2, 2)))
	assert.True(t, math.IsNaN(m.calibration))
	require.NoError(t, m.SetPreImage(filledRaster(2, 2, 3)))
	assert.True(t, math.IsNaN(m.calibration))
}

func TestSetRidgeDataValidation(t *testing.T) {
	m := NewChangeMap()
	assert.ErrorIs(t, m.SetRidgeData(nil), ErrValidation)

	pts := NewLineSet(3, 3)
	pts.Type = DataPoints
	err := m.SetRidgeData(pts)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrNotLineData)

	err = m.SetRidgeData(NewLineSet(0, 3))
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrNoExtent)
	assert.Equal(t, -1, m.Height())

	require.NoError(t, m.SetRidgeData(NewLineSet(3, 4)))
	assert.Equal(t, 3, m.Height())
	assert.Equal(t, 4, m.Width())

	require.NoError(t, m.SetPreImage(filledRaster(3, 4, 1)))
	err = m.SetRidgeData(NewLineSet(4, 4))
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, 3, m.Height())
}

func TestSetImageValidation(t *testing.T) {
	m := NewChangeMap()
	assert.ErrorIs(t, m.SetPreImage(filledRaster(2, 2, 1)), ErrValidation)

	require.NoError(t, m.SetRidgeData(NewLineSet(2, 3)))
	assert.ErrorIs(t, m.SetPreImage(nil), ErrValidation)
	err := m.SetPostImage(filledRaster(3, 2, 1))
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.ErrorIs(t, m.SetPostImage(&Raster{Rows: 2, Cols: 3}), ErrValidation)
	assert.NoError(t, m.SetPostImage(filledRaster(2, 3, 1)))
}

func TestSetNan(t *testing.T) {
	m := NewChangeMap()
	assert.NoError(t, m.SetNan(DefaultNanValue), "unchanged value is a no-op")
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1, 1e-320} {
		assert.ErrorIs(t, m.SetNan(v), ErrBadNanValue, "v=%v", v)
	}
	require.NoError(t, m.SetNan(2.5))
	assert.Equal(t, 2.5, m.NanValue())
	assert.ErrorIs(t, m.SetNan(0), ErrValidation)
	assert.Equal(t, 2.5, m.NanValue())
}

func TestLineRequiresInputs(t *testing.T) {
	m := NewChangeMap()
	_, err := m.Line(0)
	assert.ErrorIs(t, err, ErrMissingInput)

	fs := NewLineSet(3, 3)
	fs.AddLine(PointAt(1, 1), PointAt(1, 1.5))
	require.NoError(t, m.SetRidgeData(fs))
	require.NoError(t, m.SetPreImage(filledRaster(3, 3, 1)))
	_, err = m.Line(0)
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, m.SetPostImage(filledRaster(3, 3, 1)))
	_, err = m.Line(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = m.Line(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = m.Line(0)
	assert.NoError(t, err)
}

func TestLineEndToEndNoChange(t *testing.T) {
	fs := NewLineSet(3, 3)
	fs.AddLine(PointAt(1, 1), PointAt(1, 1.5))
	m := newTestMap(t, fs, filledRaster(3, 3, 1), filledRaster(3, 3, 1))

	line, err := m.Line(0)
	require.NoError(t, err)
	require.Equal(t, 1, line.NumSegments())
	row, col := line.Pixel(0)
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, col)
	assert.Equal(t, 0.0, line.Change[0])

	x0, y0, x1, y1 := line.Endpoints(0)
	assert.Equal(t, []float64{1, 1, 1.5, 1}, []float64{x0, y0, x1, y1})
}

func TestDegenerateLinesHaveNoSegments(t *testing.T) {
	fs := NewLineSet(3, 3)
	fs.AddLine(PointAt(100, 100))
	fs.AddLine()
	m := newTestMap(t, fs, filledRaster(3, 3, 1), filledRaster(3, 3, 1))

	for i := 0; i < 2; i++ {
		line, err := m.Line(i)
		require.NoError(t, err)
		assert.Zero(t, line.NumSegments())
		assert.Empty(t, line.Change)
	}
}

func TestChangeGrowsAsPostShrinks(t *testing.T) {
	fs := NewLineSet(4, 4)
	fs.AddLine(PointAt(2, 2), PointAt(2, 2))
	pre := filledRaster(4, 4, 10)
	post := filledRaster(4, 4, 10)
	m := newTestMap(t, fs, pre, post)

	line, err := m.Line(0)
	require.NoError(t, err)
	prev := line.Change[0]
	assert.Equal(t, 0.0, prev)

	for _, v := range []float32{8, 5, 2, 1, 0.5, 0.1} {
		post.Set(2, 2, v)
		require.NoError(t, m.SetPostImage(post))
		line, err = m.Line(0)
		require.NoError(t, err)
		assert.Greater(t, line.Change[0], prev, "post=%v", v)
		assert.Less(t, line.Change[0], 1.0)
		prev = line.Change[0]
	}
}

func TestChangeNegativeWhenLocalRatioBelowMean(t *testing.T) {
	fs := NewLineSet(2, 2)
	fs.AddLine(PointAt(0, 0), PointAt(0, 0))
	pre := filledRaster(2, 2, 1)
	pre.Set(1, 1, 7)
	m := newTestMap(t, fs, pre, filledRaster(2, 2, 1))

	line, err := m.Line(0)
	require.NoError(t, err)
	// 标定值 (1+1+1+16)/4，本地比值为1
	assert.InDelta(t, 1-19.0/4, line.Change[0], 1e-12)
}

func TestMidpointIsSumThenShift(t *testing.T) {
	l := &ChangeMapLine{
		Rows:   []uint32{PointAt(1, 0).Row, PointAt(2, 0).Row, 0},
		Cols:   []uint32{PointAt(0, 3).Col, PointAt(0, 4).Col, 0},
		Change: make([]float64, 2),
	}
	row, col := l.Pixel(0)
	assert.Equal(t, 1, row, "1.5 rounds down")
	assert.Equal(t, 3, col, "3.5 rounds down")
}

func TestSegmentOutsideImage(t *testing.T) {
	fs := NewLineSet(3, 3)
	fs.AddLine(PointAt(1, 1), PointAt(1, 2), PointAt(1, 3), PointAt(1, 4))
	m := newTestMap(t, fs, filledRaster(3, 3, 1), filledRaster(3, 3, 1))
	_, err := m.Line(0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestZeroRatioIsInternalFailure(t *testing.T) {
	pre := filledRaster(2, 2, 1)
	pre.Set(0, 1, -1)
	fs := NewLineSet(2, 2)
	fs.AddLine(PointAt(0, 0), PointAt(0, 0))
	m := newTestMap(t, fs, pre, filledRaster(2, 2, 1))

	_, err := m.Calibration()
	assert.ErrorIs(t, err, ErrInternalConsistency)
	_, err = m.Line(0)
	assert.ErrorIs(t, err, ErrInternalConsistency)
}
