package canvas

// Point 画布坐标，允许小数
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DisplayRect 画布在屏幕上的显示位置和尺寸 (CSS 像素)
type DisplayRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClientToCanvas 屏幕坐标转画布坐标
// 画布的像素尺寸和显示尺寸可能不同，按两者比例缩放
func ClientToCanvas(clientX, clientY float64, rect DisplayRect, canvasW, canvasH int) Point {
	scaleX, scaleY := 1.0, 1.0
	if rect.Width > 0 {
		scaleX = float64(canvasW) / rect.Width
	}
	if rect.Height > 0 {
		scaleY = float64(canvasH) / rect.Height
	}
	return Point{
		X: (clientX - rect.Left) * scaleX,
		Y: (clientY - rect.Top) * scaleY,
	}
}
