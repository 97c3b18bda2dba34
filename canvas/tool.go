package canvas

import (
	"fmt"
	"strings"
)

type Tool int

const (
	ToolBrush Tool = iota
	ToolEraser
)

func (t Tool) String() string {
	switch t {
	case ToolBrush:
		return "brush"
	case ToolEraser:
		return "eraser"
	default:
		return fmt.Sprintf("tool(%d)", int(t))
	}
}

func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "brush":
		return ToolBrush, nil
	case "eraser":
		return ToolEraser, nil
	default:
		return 0, fmt.Errorf("unknown tool %q", s)
	}
}

// 画笔大小范围，半径 = size / 2
const (
	MinBrushSize     = 10
	MaxBrushSize     = 100
	DefaultBrushSize = 30
)

// 画笔半径范围
const (
	MinRadius = float64(MinBrushSize) / 2
	MaxRadius = float64(MaxBrushSize) / 2
)

// ClampRadius 把半径限制在 [MinRadius, MaxRadius]
func ClampRadius(radius float64) float64 {
	return min(max(radius, MinRadius), MaxRadius)
}

// BrushRadius 把画笔大小限制在 [MinBrushSize, MaxBrushSize] 后换算成半径
func BrushRadius(size int) float64 {
	size = min(max(size, MinBrushSize), MaxBrushSize)
	return float64(size) / 2
}
