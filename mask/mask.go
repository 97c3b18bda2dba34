// Package mask 把标记层转换成严格的黑白掩码
//
// 白色 (255,255,255,255) 表示要移除，黑色 (0,0,0,255) 表示保留。
// 判定只看标记层的颜色和 alpha，与底图内容无关。
package mask

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// 标记颜色阈值
const (
	RedMin   = 200
	GreenMax = 50
	BlueMax  = 50
	AlphaMin = 100
)

var (
	Remove = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Keep   = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
)

// IsMarked 判断一个（非预乘）像素是否是标记色
func IsMarked(c color.NRGBA) bool {
	return c.R > RedMin && c.G < GreenMax && c.B < BlueMax && c.A > AlphaMin
}

// Extract 逐像素生成掩码，输出与 overlay 同尺寸，完全不透明
func Extract(overlay *image.NRGBA) *image.NRGBA {
	b := overlay.Bounds()
	out := image.NewNRGBA(b)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := overlay.Pix[overlay.PixOffset(b.Min.X, y):]
		dst := out.Pix[out.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			i := x * 4
			c := color.NRGBA{R: src[i], G: src[i+1], B: src[i+2], A: src[i+3]}
			v := Keep
			if IsMarked(c) {
				v = Remove
			}
			dst[i], dst[i+1], dst[i+2], dst[i+3] = v.R, v.G, v.B, v.A
		}
	}
	return out
}

// Count 统计标记（白色）像素数
func Count(m *image.NRGBA) int {
	n := 0
	for i := 0; i < len(m.Pix); i += 4 {
		if m.Pix[i] == Remove.R && m.Pix[i+1] == Remove.G && m.Pix[i+2] == Remove.B {
			n++
		}
	}
	return n
}

// BBox 所有标记像素的外接矩形，没有标记时 ok 为 false
func BBox(m *image.NRGBA) (image.Rectangle, bool) {
	b := m.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := m.Pix[m.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			if row[x*4] != Remove.R {
				continue
			}
			px := b.Min.X + x
			minX, maxX = min(minX, px), max(maxX, px)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}

	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// IsEmpty 没有任何要移除的像素
func IsEmpty(m *image.NRGBA) bool {
	return Count(m) == 0
}

// Scale 最近邻缩放，缩放后仍然只有黑白两种值
func Scale(m *image.NRGBA, w, h int) *image.NRGBA {
	if m.Bounds().Dx() == w && m.Bounds().Dy() == h {
		return m
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), m, m.Bounds(), draw.Src, nil)
	return dst
}
