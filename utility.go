package changemap

import (
	"math"
	"path/filepath"
	"strings"
)

// 与C的isnormal一致：非0、非NaN、非Inf、非次正规数
func isNormal(v float64) bool {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return math.Abs(v) >= 0x1p-1022
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func toFixed(v float64) uint32 {
	if v <= 0 {
		return 0
	}
	return uint32(math.Round(v * FixedPointScale))
}

func fromFixed(v uint32) float64 {
	return float64(v) / FixedPointScale
}

// 两个定点端点求和后右移：结果偏向左上方的像素，保持原有取整方式
func midpointPixel(a, b uint32) int {
	return int((uint64(a) + uint64(b)) >> (FixedPointShift + 1))
}

// Kahan补偿求和
type kahanSum struct {
	sum float64
	c   float64
}

func (k *kahanSum) Add(v float64) {
	y := v - k.c
	t := k.sum + y
	k.c = (t - k.sum) - y
	k.sum = t
}

func (k *kahanSum) Sum() float64 {
	return k.sum
}

var formatSuffixes = map[string]OutputFormat{
	FILE_EXT_PNG: FormatPNG,
	FILE_EXT_PDF: FormatPDF,
}

// 按扩展名猜测输出格式（不区分大小写），无法识别返回FormatNone
func GuessOutputFormat(filename string) OutputFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := formatSuffixes[ext]; ok {
		return f
	}
	return FormatNone
}

// 解析显式指定的格式名
func ParseOutputFormat(name string) OutputFormat {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	if f, ok := formatSuffixes["."+name]; ok {
		return f
	}
	return FormatNone
}
