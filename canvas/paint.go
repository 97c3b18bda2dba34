package canvas

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// OverlayColor 标记区域的半透明红色
var OverlayColor = color.NRGBA{R: 255, G: 0, B: 0, A: 128}

// 四段三次贝塞尔近似圆弧的控制点系数
const kappa = 0.5522847498

// Surface 画布：底图 + 标记层
// base 只在 Render 时写入，overlay 由 Stamp / Clear 修改
type Surface struct {
	base    *image.NRGBA
	overlay *image.NRGBA
}

func newSurface(base *image.NRGBA) *Surface {
	return &Surface{
		base:    base,
		overlay: image.NewNRGBA(base.Bounds()),
	}
}

func (s *Surface) Bounds() image.Rectangle {
	return s.base.Bounds()
}

func (s *Surface) Size() (int, int) {
	return s.base.Bounds().Dx(), s.base.Bounds().Dy()
}

// Base 底图，调用方不得修改
func (s *Surface) Base() *image.NRGBA {
	return s.base
}

// Overlay 返回标记层的拷贝
func (s *Surface) Overlay() *image.NRGBA {
	return cloneNRGBA(s.overlay)
}

// Stamp 在 center 处按 tool 画一个半径为 radius 的圆
// brush: 用 OverlayColor 叠加 (source-over)
// eraser: 按覆盖率擦除标记层 (destination-out)，露出底图
// radius 超过 MaxRadius 时按 MaxRadius 处理
func (s *Surface) Stamp(center Point, radius float64, tool Tool) {
	if !(radius > 0) || math.IsNaN(center.X) || math.IsNaN(center.Y) {
		return
	}
	radius = min(radius, MaxRadius)

	// 先在浮点数上裁剪，半径再大也只处理画布范围内的像素
	b := s.overlay.Bounds()
	if center.X+radius <= float64(b.Min.X) || center.X-radius >= float64(b.Max.X) ||
		center.Y+radius <= float64(b.Min.Y) || center.Y-radius >= float64(b.Max.Y) {
		return
	}
	r := image.Rectangle{
		Min: image.Pt(
			int(math.Floor(max(center.X-radius, float64(b.Min.X)))),
			int(math.Floor(max(center.Y-radius, float64(b.Min.Y))))),
		Max: image.Pt(
			int(math.Ceil(min(center.X+radius, float64(b.Max.X)))),
			int(math.Ceil(min(center.Y+radius, float64(b.Max.Y))))),
	}.Intersect(b)
	if r.Empty() {
		return
	}

	coverage := discCoverage(r, center, radius)

	switch tool {
	case ToolEraser:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				c := coverage.AlphaAt(x, y).A
				if c == 0 {
					continue
				}
				i := s.overlay.PixOffset(x, y)
				a := uint32(s.overlay.Pix[i+3]) * (255 - uint32(c)) / 255
				if a == 0 {
					s.overlay.Pix[i], s.overlay.Pix[i+1], s.overlay.Pix[i+2] = 0, 0, 0
				}
				s.overlay.Pix[i+3] = uint8(a)
			}
		}
	default:
		draw.DrawMask(s.overlay, r, image.NewUniform(OverlayColor), image.Point{}, coverage, r.Min, draw.Over)
	}
}

// Clear 丢弃所有笔画，只保留底图
func (s *Surface) Clear() {
	clear(s.overlay.Pix)
}

// Composite 底图叠加标记层，即用户看到的画面
func (s *Surface) Composite() *image.NRGBA {
	out := cloneNRGBA(s.base)
	draw.Draw(out, out.Bounds(), s.overlay, image.Point{}, draw.Over)
	return out
}

// discCoverage 在 r 范围内光栅化一个抗锯齿的实心圆
// 圆可以超出 r，rasterizer 会把 r 左侧的覆盖率累计到第一列
// 返回的 Alpha 图像 Bounds 与 r 相同
func discCoverage(r image.Rectangle, c Point, radius float64) *image.Alpha {
	w, h := r.Dx(), r.Dy()
	z := vector.NewRasterizer(w, h)

	// 以 r.Min 为原点
	cx := float32(c.X - float64(r.Min.X))
	cy := float32(c.Y - float64(r.Min.Y))
	rr := float32(radius)
	k := float32(kappa) * rr

	z.MoveTo(cx+rr, cy)
	z.CubeTo(cx+rr, cy+k, cx+k, cy+rr, cx, cy+rr)
	z.CubeTo(cx-k, cy+rr, cx-rr, cy+k, cx-rr, cy)
	z.CubeTo(cx-rr, cy-k, cx-k, cy-rr, cx, cy-rr)
	z.CubeTo(cx+k, cy-rr, cx+rr, cy-k, cx+rr, cy)
	z.ClosePath()

	local := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(local, local.Bounds(), image.Opaque, image.Point{})

	local.Rect = r
	return local
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	return out
}
