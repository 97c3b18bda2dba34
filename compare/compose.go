package compare

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Compose 左边 position% 显示 before，其余显示 after
// after 会被缩放到 before 的尺寸
func Compose(before, after image.Image, position float64) *image.NRGBA {
	b := before.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	draw.CatmullRom.Scale(out, out.Bounds(), after, after.Bounds(), draw.Src, nil)

	position = min(max(position, 0), 100)
	split := int(math.Round(float64(b.Dx()) * position / 100))
	draw.Draw(out, image.Rect(0, 0, split, b.Dy()), before, b.Min, draw.Src)

	return out
}
