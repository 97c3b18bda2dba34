// Package compare 原图和结果的左右对比
package compare

import (
	"sync"
	"time"

	"github.com/chaos-io/maskeraser/canvas"
)

// DefaultCooldown 拖动结束后忽略点击的时间窗口
const DefaultCooldown = 100 * time.Millisecond

// PositionFromPointer 指针位置换算成分割线位置 (0-100)
func PositionFromPointer(clientX float64, rect canvas.DisplayRect) float64 {
	if rect.Width <= 0 {
		return 0
	}
	pos := (clientX - rect.Left) / rect.Width * 100
	return min(max(pos, 0), 100)
}

// Slider 对比分割线
// 拖动结束时会触发一次 click，用 justDragged 标记在 cooldown 内忽略它
type Slider struct {
	mu          sync.Mutex
	position    float64
	pressed     bool
	moved       bool
	justDragged bool
	cooldown    time.Duration
	timer       *time.Timer
}

func NewSlider(cooldown time.Duration) *Slider {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Slider{position: 50, cooldown: cooldown}
}

func (s *Slider) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *Slider) PointerDown(clientX float64, rect canvas.DisplayRect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed = true
	s.moved = false
	s.position = PositionFromPointer(clientX, rect)
}

func (s *Slider) PointerMove(clientX float64, rect canvas.DisplayRect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pressed {
		return
	}
	s.moved = true
	s.position = PositionFromPointer(clientX, rect)
}

func (s *Slider) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pressed {
		return
	}
	s.pressed = false
	if !s.moved {
		return
	}

	s.justDragged = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cooldown, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.justDragged = false
	})
}

// Click 点击跳到指定位置，刚拖动结束时忽略，返回是否生效
func (s *Slider) Click(clientX float64, rect canvas.DisplayRect) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.justDragged {
		return false
	}
	s.position = PositionFromPointer(clientX, rect)
	return true
}

func (s *Slider) JustDragged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.justDragged
}
