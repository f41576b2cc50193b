package changemap

const (
	// 比值平滑项，避免振幅接近0时除零
	RatioEpsilon = 1.0

	// 定点坐标：1像素 = 1<<FixedPointShift 个单位
	FixedPointShift = 7
	FixedPointScale = 1 << FixedPointShift

	DefaultNanValue   = 0.0
	DefaultClassLabel = 1

	FILE_EXT_PNG  = ".png"
	FILE_EXT_PDF  = ".pdf"
	FILE_EXT_SHP  = ".shp"
	FILE_EXT_JSON = ".json"
	FILE_EXT_GEO  = ".geojson"
	FILE_EXT_GPKG = ".gpkg"
	FILE_EXT_YAML = ".yaml"
	FILE_EXT_YML  = ".yml"
	FILE_EXT_CRDG = ".crdg"

	SHP_DRIVER_NAME     = "ESRI Shapefile"
	GEOJSON_DRIVER_NAME = "GeoJSON"
	GPKG_DRIVER_NAME    = "GPKG"
	GTIFF_DRIVER_NAME   = "GTiff"

	// 脊线图层中的元数据字段
	FIELD_IMAGE_ROWS     = "img_rows"
	FIELD_IMAGE_COLS     = "img_cols"
	FIELD_CLASSIFICATION = "class"

	PDF_UNIT      = "pt"
	MASK_IMG_NAME = "ridgemask"
)
