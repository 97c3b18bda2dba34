package server

import (
	"github.com/chaos-io/maskeraser/canvas"
	"github.com/chaos-io/maskeraser/workflow"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// SessionResponse session 状态
type SessionResponse struct {
	Success       bool                    `json:"success"`
	ID            string                  `json:"id"`
	Status        workflow.Status         `json:"status"`
	Notifications []workflow.Notification `json:"notifications"`
}

// LoadImageRequest image 和 url 二选一
type LoadImageRequest struct {
	Image          string `json:"image"`
	URL            string `json:"url"`
	ContainerWidth int    `json:"containerWidth"`
	ViewportHeight int    `json:"viewportHeight"`
}

// StrokeRequest 一笔: 第一个点按下，后面的点移动，最后抬起
// Display 不为空时 Points 是屏幕坐标
type StrokeRequest struct {
	Tool      string              `json:"tool"`
	BrushSize int                 `json:"brushSize"`
	Radius    float64             `json:"radius"`
	Points    []canvas.Point      `json:"points" binding:"required,min=1"`
	Display   *canvas.DisplayRect `json:"display"`
}

// SliderRequest 对比分割线的指针事件
type SliderRequest struct {
	Event   string             `json:"event" binding:"required,oneof=down move up click"`
	ClientX float64            `json:"clientX"`
	Display canvas.DisplayRect `json:"display"`
}

type SliderResponse struct {
	Success  bool    `json:"success"`
	Position float64 `json:"position"`
	Applied  bool    `json:"applied"`
}

type ResultResponse struct {
	Success      bool   `json:"success"`
	CleanedImage string `json:"cleanedImage"`
}
