package changemap

// 由GDAL库C语言创建的内存对象，需要手动调用Destroy回收
type destroyable interface {
	Destroy()
}

// 输入数据加载器：脊线矢量（OGR/YAML）与SAR影像（GDAL）
type Loader struct {
	logTag string
}

func NewLoader() *Loader {
	return &Loader{
		logTag: "Loader:",
	}
}

// 按扩展名选择OGR驱动
func ogrDriverName(ext string) (name string, ok bool) {
	switch ext {
	case FILE_EXT_SHP:
		name = SHP_DRIVER_NAME
	case FILE_EXT_GEO, FILE_EXT_JSON:
		name = GEOJSON_DRIVER_NAME
	case FILE_EXT_GPKG:
		name = GPKG_DRIVER_NAME
	default:
		return
	}
	return name, true
}

func destroyAll(gc []destroyable) {
	for _, v := range gc {
		v.Destroy()
	}
}
