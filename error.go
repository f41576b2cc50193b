package changemap

import "errors"

var (
	ErrValidation          = errors.New("invalid configuration")
	ErrOutOfRange          = errors.New("index out of range")
	ErrInternalConsistency = errors.New("internal consistency failure")
	ErrIO                  = errors.New("output write failed")

	ErrRidgeLoad   = errors.New("ridge data load failed")
	ErrRasterLoad  = errors.New("raster load failed")
	ErrPaletteLoad = errors.New("palette load failed")

	ErrNotLineData   = errors.New("feature set does not contain ridge lines")
	ErrNoExtent      = errors.New("feature set has no image size metadata")
	ErrSizeMismatch  = errors.New("image size mismatch")
	ErrBadNanValue   = errors.New("nan substitute must be positive and finite")
	ErrMissingInput  = errors.New("change map inputs incomplete")
	ErrBadFormat     = errors.New("unsupported output format")
	ErrSurfaceState  = errors.New("illegal surface state transition")
	ErrEmptyPalette  = errors.New("palette has no stops")
	ErrPaletteOrder  = errors.New("palette stops not strictly ascending")
	ErrRasterBands   = errors.New("raster must have exactly one band")
	ErrUnknownVector = errors.New("unknown ridge file type")
)
