package changemap

import (
	"fmt"
	"os"

	"github.com/wgdzlh/changemap/log"
	"github.com/wgdzlh/changemap/utils"

	"github.com/lukeroth/gdal"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// 分类字段可能的名称（shp中文字段多为GBK编码）
var classFieldNames = []string{FIELD_CLASSIFICATION, "分类"}

// YAML格式的脊线文件，坐标为定点数[row, col]
type ridgeDocument struct {
	Type           string       `yaml:"type"`
	ImageRows      uint32       `yaml:"image_rows"`
	ImageCols      uint32       `yaml:"image_cols"`
	Classification []int        `yaml:"classification"`
	Lines          [][][]uint32 `yaml:"lines"`
}

// 读取脊线数据：.yaml/.yml/.crdg为YAML文档，.shp/.geojson/.json/.gpkg经OGR读取
func (l *Loader) LoadRidgeData(path string) (fs *FeatureSet, err error) {
	ext := utils.GetLowerExt(path)
	switch ext {
	case FILE_EXT_YAML, FILE_EXT_YML, FILE_EXT_CRDG:
		fs, err = l.loadRidgeDocument(path)
	default:
		name, ok := ogrDriverName(ext)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %w", ErrRidgeLoad, path, ErrUnknownVector)
		}
		fs, err = l.loadRidgeLayer(path, name)
	}
	if err != nil {
		return nil, err
	}
	log.Info(l.logTag+"loaded ridge data", zap.String("file", path), zap.Stringer("type", fs.Type),
		zap.Int("lines", fs.Len()), zap.Uint32("rows", fs.ImageRows), zap.Uint32("cols", fs.ImageCols))
	return
}

func (l *Loader) loadRidgeDocument(path string) (fs *FeatureSet, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Error(l.logTag+"read ridge file failed", zap.String("file", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrRidgeLoad, path, err)
	}
	return ParseRidgeDocument(raw)
}

// 解析YAML脊线文档
func ParseRidgeDocument(raw []byte) (fs *FeatureSet, err error) {
	var doc ridgeDocument
	if err = yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRidgeLoad, err)
	}
	fs = &FeatureSet{
		ImageRows: doc.ImageRows,
		ImageCols: doc.ImageCols,
	}
	switch doc.Type {
	case "", "lines":
		fs.Type = DataLines
	case "points":
		fs.Type = DataPoints
	default:
		return nil, fmt.Errorf("%w: unknown ridge data type %q", ErrRidgeLoad, doc.Type)
	}
	for i, pts := range doc.Lines {
		line := make(Line, len(pts))
		for j, p := range pts {
			if len(p) != 2 {
				return nil, fmt.Errorf("%w: line %d point %d has %d coordinates", ErrRidgeLoad, i, j, len(p))
			}
			line[j] = Point{Row: p[0], Col: p[1]}
		}
		fs.Lines = append(fs.Lines, line)
	}
	if doc.Classification != nil {
		fs.Classification = make([]uint8, len(doc.Classification))
		for i, c := range doc.Classification {
			if c < 0 || c > 255 {
				return nil, fmt.Errorf("%w: class label %d out of range", ErrRidgeLoad, c)
			}
			fs.Classification[i] = uint8(c)
		}
	}
	return
}

func fieldIndex(def gdal.FeatureDefinition, names ...string) int {
	for _, name := range names {
		for _, n := range utils.FieldNameCandidates(name) {
			if idx := def.FieldIndex(n); idx >= 0 {
				return idx
			}
		}
	}
	return -1
}

// 经OGR读取脊线图层：几何为像素坐标(x=列, y=行)的LineString/MultiLineString，
// 影像尺寸取自img_rows/img_cols字段，分类取自class字段
func (l *Loader) loadRidgeLayer(path, driverName string) (fs *FeatureSet, err error) {
	driver := gdal.OGRDriverByName(driverName)
	ds, ok := driver.Open(path, 0)
	if !ok {
		log.Error(l.logTag+"open ridge layer failed", zap.String("file", path), zap.String("driver", driverName))
		return nil, fmt.Errorf("%w: %s: cannot open with %s driver", ErrRidgeLoad, path, driverName)
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	def := layer.Definition()
	var (
		rowsIdx  = fieldIndex(def, FIELD_IMAGE_ROWS)
		colsIdx  = fieldIndex(def, FIELD_IMAGE_COLS)
		classIdx = fieldIndex(def, classFieldNames...)
		feature  *gdal.Feature
		classes  []uint8
		extentOk = rowsIdx >= 0 && colsIdx >= 0
		gc       []destroyable
	)
	defer func() {
		destroyAll(gc)
	}()
	if !extentOk {
		log.Warn(l.logTag+"ridge layer lacks image size fields", zap.String("file", path))
	}
	fs = &FeatureSet{Type: DataLines}
	n := 0
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		if extentOk {
			rows := uint32(feature.FieldAsInteger(rowsIdx))
			cols := uint32(feature.FieldAsInteger(colsIdx))
			if n == 0 {
				fs.ImageRows, fs.ImageCols = rows, cols
			} else if rows != fs.ImageRows || cols != fs.ImageCols {
				log.Warn(l.logTag+"inconsistent image size fields", zap.Int64("fid", feature.FID()))
				fs.ImageRows, fs.ImageCols = 0, 0
				extentOk = false
			}
		}
		var label uint8
		if classIdx >= 0 {
			label = uint8(feature.FieldAsInteger(classIdx))
		}
		lines, e := geometryLines(feature.Geometry())
		if e != nil {
			log.Error(l.logTag+"bad ridge geometry", zap.Int64("fid", feature.FID()), zap.Error(e))
			return nil, fmt.Errorf("%w: %s: feature %d: %w", ErrRidgeLoad, path, feature.FID(), e)
		}
		for _, line := range lines {
			fs.Lines = append(fs.Lines, line)
			classes = append(classes, label)
		}
		n++
	}
	if classIdx >= 0 {
		fs.Classification = classes
	}
	return
}

func geometryLines(geo gdal.Geometry) (lines []Line, err error) {
	switch geo.Type() {
	case gdal.GT_LineString:
		lines = append(lines, lineFromGeometry(geo))
	case gdal.GT_MultiLineString:
		for i, gn := 0, geo.GeometryCount(); i < gn; i++ {
			lines = append(lines, lineFromGeometry(geo.Geometry(i)))
		}
	default:
		err = ErrNotLineData
	}
	return
}

func lineFromGeometry(geo gdal.Geometry) Line {
	np := geo.PointCount()
	line := make(Line, np)
	for i := 0; i < np; i++ {
		x, y, _ := geo.Point(i)
		line[i] = PointAt(y, x)
	}
	return line
}

// 按分类标签筛选脊线，点数据原样复制。分类元数据缺失或条数不符时返回原数据集与false
func (fs *FeatureSet) FilterByClass(label uint8) (out *FeatureSet, ok bool) {
	if fs.Classification == nil || len(fs.Classification) != len(fs.Lines) {
		return fs, false
	}
	out = NewLineSet(fs.ImageRows, fs.ImageCols)
	out.Type = fs.Type
	kept := lo.Filter(fs.Lines, func(_ Line, i int) bool {
		return fs.Classification[i] == label
	})
	out.Lines = lo.Map(kept, func(l Line, _ int) Line {
		return append(Line(nil), l...)
	})
	return out, true
}
