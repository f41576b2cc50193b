// Command ridge-changemap renders a change map along classified ridge lines
// from a pre-event and a post-event SAR amplitude image.
//
// Usage:
//
//	ridge-changemap [OPTION ...] [-m MODE] CRDG PRE POST OUTFILE
//
// Exit status is 0 on success, 1 on usage errors, 2 when the ridge data
// cannot be loaded, 3 when an image cannot be loaded, 4 when the output
// cannot be written and 5 on an internal consistency failure.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/wgdzlh/changemap"
	"github.com/wgdzlh/changemap/log"
	"github.com/wgdzlh/changemap/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exitOK = iota
	exitUsage
	exitRidge
	exitRaster
	exitWrite
	exitInternal
)

const (
	modeRidgeLines = "ridgelines"
	modeRidgeMask  = "ridgemask"
)

const longHelp = `Modes:
  ridgelines      Draw vector features coloured by change
  ridgemask       Draw masked ratio image coloured by change

Generates a change map using a pre-event SAR amplitude image PRE, a
post-event image POST, and a classified ridge data file CRDG.  Output
is generated in OUTFILE, as PNG or PDF depending on its extension or
the --format option.  Images should be single-channel 32-bit floating
point TIFF files.  CRDG may be a YAML ridge document (.yaml, .yml,
.crdg) or a line layer readable by OGR (.shp, .geojson, .json, .gpkg).`

type options struct {
	mode     string
	class    uint8
	nan      float64
	smooth   bool
	format   string
	palette  string
	logLevel string
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "ridge-changemap [OPTION ...] [-m MODE] CRDG PRE POST OUTFILE",
		Short: "Render a SAR change map along ridge lines",
		Long:  longHelp,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 4 {
				return withCode(exitUsage, errors.New(
					"you must specify a ridge data file, pre- and post-event SAR images, and an output filename"))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})
	f := cmd.Flags()
	f.StringVarP(&opts.mode, "mode", "m", modeRidgeLines, "set changemap rendering mode (ridgelines|ridgemask)")
	f.Uint8VarP(&opts.class, "class", "c", changemap.DefaultClassLabel, "set class label to use for detection")
	f.Float64VarP(&opts.nan, "nan", "i", changemap.DefaultNanValue, "set non-finite input values to VAL")
	f.BoolVarP(&opts.smooth, "smooth", "s", false, "smooth along ridge lines before evaluating change (not implemented)")
	f.StringVarP(&opts.format, "format", "f", "", "output format (png|pdf), guessed from OUTFILE when empty")
	f.StringVarP(&opts.palette, "palette", "p", "", "YAML palette file replacing the default colour table")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	return cmd
}

func outputFormat(opts *options, out string) (format changemap.OutputFormat, err error) {
	if opts.format != "" {
		if format = changemap.ParseOutputFormat(opts.format); format == changemap.FormatNone {
			err = withCode(exitUsage, fmt.Errorf("bad argument '%s' to -f option", opts.format))
		}
		return
	}
	if format = changemap.GuessOutputFormat(out); format == changemap.FormatNone {
		log.Warn(fmt.Sprintf("could not guess output format for '%s', using PDF", out))
		format = changemap.FormatPDF
	}
	return
}

// 读取脊线并按分类标签筛选；分类元数据无效时沿用全部脊线
func loadRidges(loader *changemap.Loader, path string, class uint8) (fs *changemap.FeatureSet, err error) {
	if fs, err = loader.LoadRidgeData(path); err != nil {
		return nil, withCode(exitRidge, err)
	}
	if fs.Type != changemap.DataLines {
		return nil, withCode(exitRidge, fmt.Errorf("'%s' does not contain ridge line data", path))
	}
	if _, _, ok := fs.Extent(); !ok {
		return nil, withCode(exitRidge, fmt.Errorf("'%s' contains invalid image size metadata", path))
	}
	filtered, ok := fs.FilterByClass(class)
	if !ok {
		log.Warn(fmt.Sprintf("'%s' contains invalid classification metadata", path))
		return fs, nil
	}
	log.Info("filtered ridge lines by class", zap.Uint8("class", class),
		zap.Int("kept", filtered.Len()), zap.Int("total", fs.Len()))
	return filtered, nil
}

func loadImage(loader *changemap.Loader, path string, rows, cols int, set func(*changemap.Raster) error) error {
	img, err := loader.LoadRaster(path, rows, cols)
	if err != nil {
		return withCode(exitRaster, err)
	}
	return withCode(exitRaster, set(img))
}

func run(opts *options, args []string) (err error) {
	if err = log.SetLevel(opts.logLevel); err != nil {
		return withCode(exitUsage, fmt.Errorf("bad argument '%s' to --log-level option", opts.logLevel))
	}
	if opts.mode != modeRidgeLines && opts.mode != modeRidgeMask {
		return withCode(exitUsage, fmt.Errorf("bad argument '%s' to -m option", opts.mode))
	}
	crdg, pre, post, out := args[0], args[1], args[2], args[3]
	if opts.smooth {
		log.Warn("smoothing along ridge lines is not implemented, ignoring --smooth")
	}
	palette := changemap.DefaultPalette()
	if opts.palette != "" {
		if palette, err = changemap.LoadPalette(opts.palette); err != nil {
			return withCode(exitUsage, err)
		}
	}
	format, err := outputFormat(opts, out)
	if err != nil {
		return
	}
	if utils.FileExists(out) {
		log.Warn(fmt.Sprintf("'%s' exists and will be replaced", out))
	}

	changes := changemap.NewChangeMap()
	if err = changes.SetNan(opts.nan); err != nil {
		return withCode(exitUsage, fmt.Errorf("bad argument '%v' to -i option: %w", opts.nan, err))
	}
	loader := changemap.NewLoader()
	ridges, err := loadRidges(loader, crdg, opts.class)
	if err != nil {
		return
	}
	if err = changes.SetRidgeData(ridges); err != nil {
		return withCode(exitRidge, err)
	}
	rows, cols := changes.Height(), changes.Width()
	if err = loadImage(loader, pre, rows, cols, changes.SetPreImage); err != nil {
		return
	}
	if err = loadImage(loader, post, rows, cols, changes.SetPostImage); err != nil {
		return
	}

	exporter := changemap.NewExporter(palette)
	exportOpts := changemap.OutputOptions{
		Filename: out,
		Format:   format,
		Height:   rows,
		Width:    cols,
	}
	switch opts.mode {
	case modeRidgeLines:
		err = exporter.ExportRidgeLines(changes, exportOpts)
	case modeRidgeMask:
		err = exporter.ExportRidgeMask(changes, exportOpts)
	}
	return withCode(exportExitCode(err), err)
}

func exportExitCode(err error) int {
	switch {
	case errors.Is(err, changemap.ErrIO):
		return exitWrite
	case errors.Is(err, changemap.ErrOutOfRange):
		return exitRidge
	default:
		return exitInternal
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra自身的参数错误（如多余的子命令）
	return exitUsage
}

func execute(args []string) int {
	defer log.Sync()
	if args == nil {
		args = []string{}
	}
	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.Execute()
	code := exitCode(err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v.\n", err)
		if code == exitUsage {
			fmt.Fprintln(os.Stderr)
			fmt.Fprint(os.Stderr, cmd.UsageString())
		}
	}
	return code
}

func main() {
	os.Exit(execute(os.Args[1:]))
}
