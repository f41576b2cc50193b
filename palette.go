package changemap

import (
	"fmt"
	"math"
	"os"

	"github.com/wgdzlh/changemap/log"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// 0-1范围的RGB颜色
type Colour struct {
	R, G, B float64
}

// 打包像素，通道顺序固定为R、G、B，与主机字节序无关
type PackedRGB struct {
	R, G, B uint8
}

func channelByte(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}

func (c Colour) Packed() PackedRGB {
	return PackedRGB{channelByte(c.R), channelByte(c.G), channelByte(c.B)}
}

// 写入4字节像素槽的前3个字节，第4字节不动
func (p PackedRGB) Put(slot []byte) {
	_ = slot[3]
	slot[0] = p.R
	slot[1] = p.G
	slot[2] = p.B
}

// 调色板控制点
type Stop struct {
	Value float64 `yaml:"value"`
	R     uint8   `yaml:"r"`
	G     uint8   `yaml:"g"`
	B     uint8   `yaml:"b"`
}

func (s Stop) colour() Colour {
	return Colour{float64(s.R) / 255, float64(s.G) / 255, float64(s.B) / 255}
}

type BackgroundColour struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// 分段线性调色板：Stops按Value升序，Background同时作为画布底色
type Palette struct {
	Stops      []Stop           `yaml:"stops"`
	Background BackgroundColour `yaml:"background"`
}

func DefaultPalette() *Palette {
	return &Palette{
		Stops: []Stop{
			{0.00, 242, 242, 242},
			{0.50, 153, 153, 153},
			{0.75, 64, 64, 64},
			{1.00, 0, 0, 255},
		},
		Background: BackgroundColour{255, 255, 255},
	}
}

func (p *Palette) Validate() error {
	if len(p.Stops) == 0 {
		return ErrEmptyPalette
	}
	for i, s := range p.Stops {
		if !isFinite(s.Value) {
			return fmt.Errorf("%w: stop %d has value %v", ErrPaletteOrder, i, s.Value)
		}
		if i > 0 && s.Value <= p.Stops[i-1].Value {
			return fmt.Errorf("%w: stop %d (%v) after %v", ErrPaletteOrder, i, s.Value, p.Stops[i-1].Value)
		}
	}
	return nil
}

// 变化值对应的颜色。d先截到不小于0；落在第一个控制点以下取首色，
// 超过最后一个控制点取末色
func (p *Palette) Colour(d float64) Colour {
	d = math.Max(0, d)
	stops := p.Stops
	if d <= stops[0].Value {
		return stops[0].colour()
	}
	for i := 1; i < len(stops); i++ {
		end := stops[i]
		if d > end.Value {
			continue
		}
		start := stops[i-1]
		x := (d - start.Value) / (end.Value - start.Value)
		return Colour{
			R: (x*float64(end.R) + (1-x)*float64(start.R)) / 255,
			G: (x*float64(end.G) + (1-x)*float64(start.G)) / 255,
			B: (x*float64(end.B) + (1-x)*float64(start.B)) / 255,
		}
	}
	return stops[len(stops)-1].colour()
}

func (p *Palette) BackgroundColour() Colour {
	b := p.Background
	return Colour{float64(b.R) / 255, float64(b.G) / 255, float64(b.B) / 255}
}

// 从YAML文件读取调色板
func LoadPalette(path string) (p *Palette, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Error("Palette:read palette failed", zap.String("file", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaletteLoad, err)
	}
	return ParsePalette(raw)
}

func ParsePalette(raw []byte) (p *Palette, err error) {
	p = &Palette{}
	if err = yaml.UnmarshalStrict(raw, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaletteLoad, err)
	}
	if err = p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaletteLoad, err)
	}
	log.Info("Palette:loaded palette", zap.Int("stops", len(p.Stops)))
	return
}
