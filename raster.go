package changemap

import (
	"fmt"

	"github.com/wgdzlh/changemap/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 读取单波段SAR影像，尺寸须与脊线元数据一致
func (l *Loader) LoadRaster(tif string, rows, cols int) (r *Raster, err error) {
	sds, err := gdal.Open(tif, gdal.ReadOnly)
	if err != nil {
		log.Error(l.logTag+"open tif failed", zap.String("file", tif), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrRasterLoad, tif, err)
	}
	defer sds.Close()
	if bc := sds.RasterCount(); bc != 1 {
		log.Error(l.logTag+"sar tif can have only one band", zap.String("file", tif), zap.Int("bands", bc))
		return nil, fmt.Errorf("%w: %s: %w (got %d)", ErrRasterLoad, tif, ErrRasterBands, bc)
	}
	x := sds.RasterXSize()
	y := sds.RasterYSize()
	if y != rows || x != cols {
		log.Error(l.logTag+"bad image size", zap.String("file", tif),
			zap.Int("rows", y), zap.Int("cols", x), zap.Int("wantRows", rows), zap.Int("wantCols", cols))
		return nil, fmt.Errorf("%w: %s: %w (expected %dx%d, got %dx%d)",
			ErrRasterLoad, tif, ErrSizeMismatch, rows, cols, y, x)
	}
	band := sds.RasterBand(1)
	if dt := band.RasterDataType(); dt != gdal.Float32 {
		// GDAL在读入float32缓冲时自动转换
		log.Warn(l.logTag+"sar tif is not float32, converting", zap.String("file", tif), zap.String("dataType", dt.Name()))
	}
	r = NewRaster(rows, cols)
	if err = band.IO(gdal.Read, 0, 0, cols, rows, r.Data, cols, rows, 0, 0); err != nil {
		log.Error(l.logTag+"read tif band failed", zap.String("file", tif), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrRasterLoad, tif, err)
	}
	log.Info(l.logTag+"read sar tif", zap.String("file", tif), zap.Int("rows", rows), zap.Int("cols", cols))
	return
}
