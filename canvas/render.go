package canvas

import (
	"errors"
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// Fit 描述画布可用的显示区域
// MaxHeight 一般是 viewport 高度乘以一个比例
type Fit struct {
	MaxWidth  int
	MaxHeight int
}

// NewFit 由容器宽度和视口高度计算显示区域
func NewFit(containerWidth, viewportHeight int, maxHeightRatio float64) Fit {
	return Fit{
		MaxWidth:  containerWidth,
		MaxHeight: int(math.Round(float64(viewportHeight) * maxHeightRatio)),
	}
}

// FitSize 先按最大宽度缩放，再按最大高度缩放，保持宽高比
// MaxWidth / MaxHeight <= 0 表示不限制
func FitSize(srcW, srcH int, fit Fit) (int, int) {
	w, h := float64(srcW), float64(srcH)

	if fit.MaxWidth > 0 && w > float64(fit.MaxWidth) {
		h = h * float64(fit.MaxWidth) / w
		w = float64(fit.MaxWidth)
	}
	if fit.MaxHeight > 0 && h > float64(fit.MaxHeight) {
		w = w * float64(fit.MaxHeight) / h
		h = float64(fit.MaxHeight)
	}

	return max(1, int(math.Round(w))), max(1, int(math.Round(h)))
}

// Render 把原图按 fit 缩放后绘制到新的画布上
// 失败时不产生任何画布
func Render(src image.Image, fit Fit) (*Surface, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, errors.New("empty source image")
	}

	b := src.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), fit)

	var scaled image.Image = src
	if w != b.Dx() || h != b.Dy() {
		scaled = resize.Resize(uint(w), uint(h), src, resize.Lanczos3)
	}

	return newSurface(toNRGBA(scaled)), nil
}

// toNRGBA 拷贝成以 (0,0) 为原点的 NRGBA
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
