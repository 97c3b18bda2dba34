package workflow

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/chaos-io/maskeraser/canvas"
	"github.com/chaos-io/maskeraser/mask"
	"github.com/chaos-io/maskeraser/util"
	"go.uber.org/zap"
)

// ErrDiscarded 请求返回前工作流已被重置，结果被丢弃
var ErrDiscarded = errors.New("removal result discarded after reset")

// Remover 远端去除物体服务
type Remover interface {
	RemoveObject(ctx context.Context, image, mask string) (string, error)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string) {}

// Editor 一次去除物体的完整流程: 上传 -> 涂抹 -> 结果
//
// 远端请求期间 busy 为 true，涂抹、清除、加载和再次提交都会返回 ErrBusy。
// 请求不能取消，Reset 只会让迟到的结果被丢弃。
type Editor struct {
	mu       sync.Mutex
	remover  Remover
	notifier Notifier
	fit      canvas.Fit

	state     State
	source    string
	sourceImg image.Image
	surface   *canvas.Surface
	snapshot  *image.NRGBA
	drawing   bool
	result    string

	busy       bool
	generation uint64
}

type Option func(e *Editor)

func WithFit(fit canvas.Fit) Option {
	return func(e *Editor) {
		e.fit = fit
	}
}

func WithNotifier(n Notifier) Option {
	return func(e *Editor) {
		e.notifier = n
	}
}

func NewEditor(remover Remover, opts ...Option) *Editor {
	e := &Editor{
		remover:  remover,
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status 某一时刻的状态快照
type Status struct {
	State    State `json:"state"`
	Step     int   `json:"step"`
	Busy     bool  `json:"busy"`
	HasMarks bool  `json:"hasMarks"`
	Width    int   `json:"width"`
	Height   int   `json:"height"`
}

func (e *Editor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		State:    e.state,
		Step:     e.state.Step(),
		Busy:     e.busy,
		HasMarks: e.hasMarks(),
	}
	if e.surface != nil {
		st.Width, st.Height = e.surface.Size()
	}
	return st
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Load 使用默认显示区域加载图片
func (e *Editor) Load(dataURL string) error {
	return e.LoadWithFit(dataURL, e.fit)
}

// LoadWithFit 解码图片并初始化画布
// 解码或绘制失败时不改变任何状态
func (e *Editor) LoadWithFit(dataURL string, fit canvas.Fit) error {
	img, _, err := util.DecodeImageDataURL(dataURL)
	if err == nil {
		var surface *canvas.Surface
		if surface, err = canvas.Render(img, fit); err == nil {
			return e.swapImage(dataURL, img, surface, fit)
		}
	}

	util.Logger.Warn("failed to load image", zap.Error(err))
	e.notifier.Notify(LevelError, "Failed to load image: "+err.Error())
	return fmt.Errorf("load image: %w", err)
}

func (e *Editor) swapImage(dataURL string, img image.Image, surface *canvas.Surface, fit canvas.Fit) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy {
		return e.fail(ErrBusy)
	}
	if err := checkTransition(e.state, Editing); err != nil {
		return e.fail(err)
	}

	e.source = dataURL
	e.sourceImg = img
	e.surface = surface
	e.fit = fit
	e.snapshot = surface.Overlay()
	e.drawing = false
	e.result = ""
	e.state = Editing

	w, h := surface.Size()
	util.Logger.Info("image loaded",
		zap.Int("src_width", img.Bounds().Dx()),
		zap.Int("src_height", img.Bounds().Dy()),
		zap.Int("canvas_width", w),
		zap.Int("canvas_height", h))
	return nil
}

// PointerDown 开始一笔并在当前位置盖一个圆
func (e *Editor) PointerDown(p canvas.Point, tool canvas.Tool, radius float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkPaintable(); err != nil {
		return err
	}
	e.drawing = true
	e.stamp(p, tool, radius)
	return nil
}

// PointerMove 只有按下状态才会画，两次采样之间不插值
func (e *Editor) PointerMove(p canvas.Point, tool canvas.Tool, radius float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.drawing {
		return nil
	}
	if err := e.checkPaintable(); err != nil {
		return err
	}
	e.stamp(p, tool, radius)
	return nil
}

func (e *Editor) PointerUp() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drawing = false
}

func (e *Editor) PointerLeave() {
	e.PointerUp()
}

// Drawing 是否处于按下状态
func (e *Editor) Drawing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawing
}

// ClearMask 重新绘制底图，丢弃所有笔画
func (e *Editor) ClearMask() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkPaintable(); err != nil {
		return err
	}
	e.surface.Clear()
	e.snapshot = e.surface.Overlay()
	e.drawing = false
	return nil
}

// HasMarks 最近一次笔画之后是否有被标记的像素
func (e *Editor) HasMarks() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMarks()
}

// Mask 当前画布尺寸的黑白掩码
func (e *Editor) Mask() (*image.NRGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.surface == nil {
		return nil, ErrNoImage
	}
	return mask.Extract(e.surface.Overlay()), nil
}

// Composite 底图加标记层
func (e *Editor) Composite() (*image.NRGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.surface == nil {
		return nil, ErrNoImage
	}
	return e.surface.Composite(), nil
}

// Source 原图（未缩放）
func (e *Editor) Source() (image.Image, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sourceImg, e.sourceImg != nil
}

// Result 去除后的图片 data URL，只有 Resulted 状态才有
func (e *Editor) Result() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.state == Resulted
}

// Remove 提取掩码并提交给远端服务
// 掩码为空时直接拒绝，不发请求；失败时停留在 Editing，画布不变
func (e *Editor) Remove(ctx context.Context) error {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return e.fail(ErrBusy)
	}
	switch e.state {
	case NoImage:
		e.mu.Unlock()
		return e.fail(ErrNoImage)
	case Resulted:
		err := checkTransition(e.state, Resulted)
		e.mu.Unlock()
		return e.fail(err)
	}
	if e.surface == nil || e.sourceImg == nil {
		e.mu.Unlock()
		return e.fail(ErrNoCanvas)
	}

	m := mask.Extract(e.surface.Overlay())
	if mask.IsEmpty(m) {
		e.mu.Unlock()
		return e.fail(ErrEmptyMask)
	}

	// 掩码按原图尺寸提交
	b := e.sourceImg.Bounds()
	maskURL, err := util.EncodePNGDataURL(mask.Scale(m, b.Dx(), b.Dy()))
	if err != nil {
		e.mu.Unlock()
		return e.fail(fmt.Errorf("encode mask: %w", err))
	}

	source := e.source
	gen := e.generation
	e.busy = true
	e.drawing = false
	e.mu.Unlock()

	bbox, _ := mask.BBox(m)
	util.Logger.Info("removing object",
		zap.Int("marked_pixels", mask.Count(m)),
		zap.Stringer("marked_bounds", bbox))
	cleaned, err := e.remover.RemoveObject(ctx, source, maskURL)

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		util.Logger.Info("removal result discarded", zap.Bool("failed", err != nil))
		return ErrDiscarded
	}
	e.busy = false

	if err != nil {
		util.Logger.Warn("failed to remove object", zap.Error(err))
		e.notifier.Notify(LevelError, err.Error())
		return fmt.Errorf("remove object: %w", err)
	}

	if err := checkTransition(e.state, Resulted); err != nil {
		return err
	}
	e.result = cleaned
	e.state = Resulted
	e.notifier.Notify(LevelSuccess, "Object removed")
	return nil
}

// Reset 回到 NoImage，正在进行的请求结果会被丢弃
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == NoImage {
		return
	}
	e.source = ""
	e.sourceImg = nil
	e.surface = nil
	e.snapshot = nil
	e.drawing = false
	e.result = ""
	e.busy = false
	e.generation++
	e.state = NoImage
}

func (e *Editor) checkPaintable() error {
	switch {
	case e.busy:
		return ErrBusy
	case e.state == NoImage:
		return ErrNoImage
	case e.state != Editing:
		return fmt.Errorf("%w: cannot edit the mask in state %s", ErrInvalidTransition, e.state)
	case e.surface == nil:
		return ErrNoCanvas
	}
	return nil
}

func (e *Editor) stamp(p canvas.Point, tool canvas.Tool, radius float64) {
	e.surface.Stamp(p, radius, tool)
	e.snapshot = e.surface.Overlay()
}

func (e *Editor) hasMarks() bool {
	return e.snapshot != nil && !mask.IsEmpty(mask.Extract(e.snapshot))
}

// fail 通知用户并原样返回错误
func (e *Editor) fail(err error) error {
	e.notifier.Notify(LevelError, err.Error())
	return err
}
