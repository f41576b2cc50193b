package changemap

// 单波段32位浮点栅格，按行优先存储
type Raster struct {
	Rows int
	Cols int
	Data []float32
}

func NewRaster(rows, cols int) *Raster {
	return &Raster{
		Rows: rows,
		Cols: cols,
		Data: make([]float32, rows*cols),
	}
}

func (r *Raster) At(row, col int) float32 {
	return r.Data[row*r.Cols+col]
}

func (r *Raster) Set(row, col int, v float32) {
	r.Data[row*r.Cols+col] = v
}

// 填充同一个值
func (r *Raster) Fill(v float32) {
	for i := range r.Data {
		r.Data[i] = v
	}
}

// 要素集类型
type DataType int

const (
	DataNone DataType = iota
	DataLines
	DataPoints
)

func (t DataType) String() string {
	switch t {
	case DataLines:
		return "lines"
	case DataPoints:
		return "points"
	default:
		return "none"
	}
}

// 脊线点，行列坐标为定点数（见FixedPointShift）
type Point struct {
	Row uint32
	Col uint32
}

// 由像素坐标生成定点数坐标
func PointAt(row, col float64) Point {
	return Point{
		Row: toFixed(row),
		Col: toFixed(col),
	}
}

type Line []Point

// 脊线要素集
type FeatureSet struct {
	Type           DataType
	Lines          []Line
	ImageRows      uint32  // 原始影像行数，0表示缺失
	ImageCols      uint32  // 原始影像列数，0表示缺失
	Classification []uint8 // 可选，每条脊线一个分类标签
}

func NewLineSet(rows, cols uint32) *FeatureSet {
	return &FeatureSet{
		Type:      DataLines,
		ImageRows: rows,
		ImageCols: cols,
	}
}

// 追加一条脊线，返回其下标
func (fs *FeatureSet) AddLine(pts ...Point) int {
	fs.Lines = append(fs.Lines, Line(pts))
	return len(fs.Lines) - 1
}

func (fs *FeatureSet) Len() int {
	return len(fs.Lines)
}

// 影像尺寸元数据，任一为0则视为不可用
func (fs *FeatureSet) Extent() (rows, cols int, ok bool) {
	if fs.ImageRows == 0 || fs.ImageCols == 0 {
		return
	}
	return int(fs.ImageRows), int(fs.ImageCols), true
}

// 输出格式
type OutputFormat int

const (
	FormatNone OutputFormat = iota
	FormatPDF
	FormatPNG
)

func (f OutputFormat) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatPNG:
		return "png"
	default:
		return "none"
	}
}

type OutputOptions struct {
	Filename string
	Format   OutputFormat
	Height   int // 0表示沿用变化图的影像尺寸
	Width    int
}
