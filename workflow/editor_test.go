package workflow

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/chaos-io/maskeraser/aiclient"
	"github.com/chaos-io/maskeraser/canvas"
	"github.com/chaos-io/maskeraser/mask"
	"github.com/chaos-io/maskeraser/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemover struct {
	mu      sync.Mutex
	calls   int
	image   string
	mask    string
	cleaned string
	err     error
	// 非空时阻塞直到 close
	block chan struct{}
}

func (f *fakeRemover) RemoveObject(_ context.Context, image, mask string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.image, f.mask = image, mask
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.cleaned, f.err
}

func (f *fakeRemover) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func grayDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 128, 128, 128, 255
	}
	u, err := util.EncodePNGDataURL(img)
	require.NoError(t, err)
	return u
}

func newEditor(t *testing.T, r Remover) (*Editor, *Toasts) {
	t.Helper()
	toasts := NewToasts(10)
	e := NewEditor(r, WithNotifier(toasts), WithFit(canvas.Fit{MaxWidth: 800, MaxHeight: 600}))
	return e, toasts
}

func paintCenter(t *testing.T, e *Editor) {
	t.Helper()
	require.NoError(t, e.PointerDown(canvas.Point{X: 50, Y: 50}, canvas.ToolBrush, 15))
	e.PointerUp()
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	all := []State{NoImage, Editing, Resulted}
	want := map[State]map[State]bool{
		NoImage:  {Editing: true},
		Editing:  {Editing: true, Resulted: true, NoImage: true},
		Resulted: {NoImage: true},
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, want[from][to], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestEditor_Load(t *testing.T) {
	t.Parallel()

	e, _ := newEditor(t, &fakeRemover{})
	assert.Equal(t, NoImage, e.State())

	require.NoError(t, e.Load(grayDataURL(t, 100, 100)))
	st := e.Status()
	assert.Equal(t, Editing, st.State)
	assert.Equal(t, 2, st.Step)
	assert.Equal(t, 100, st.Width)
	assert.Equal(t, 100, st.Height)
	assert.False(t, st.HasMarks)

	// Editing 中再加载新图，仍然是 Editing，笔画被丢弃
	paintCenter(t, e)
	require.NoError(t, e.LoadWithFit(grayDataURL(t, 400, 200), canvas.Fit{MaxWidth: 200}))
	st = e.Status()
	assert.Equal(t, Editing, st.State)
	assert.Equal(t, 200, st.Width)
	assert.Equal(t, 100, st.Height)
	assert.False(t, st.HasMarks)
}

func TestEditor_LoadFailureKeepsState(t *testing.T) {
	t.Parallel()

	e, toasts := newEditor(t, &fakeRemover{})

	err := e.Load("data:image/png;base64,bm90IGFuIGltYWdl")
	require.Error(t, err)
	assert.Equal(t, NoImage, e.State())
	last, ok := toasts.Last()
	require.True(t, ok)
	assert.Equal(t, LevelError, last.Level)

	// 已有图片时加载失败，原画布保持不变
	require.NoError(t, e.Load(grayDataURL(t, 100, 100)))
	paintCenter(t, e)
	before, err := e.Composite()
	require.NoError(t, err)

	require.Error(t, e.Load("data:image/png;base64,"))
	after, err := e.Composite()
	require.NoError(t, err)
	assert.Equal(t, before.Pix, after.Pix)
	assert.True(t, e.HasMarks())
}

func TestEditor_PointerProtocol(t *testing.T) {
	t.Parallel()

	e, _ := newEditor(t, &fakeRemover{})
	require.ErrorIs(t, e.PointerDown(canvas.Point{}, canvas.ToolBrush, 10), ErrNoImage)

	require.NoError(t, e.Load(grayDataURL(t, 100, 100)))

	// 没有按下时 move 不画
	require.NoError(t, e.PointerMove(canvas.Point{X: 20, Y: 20}, canvas.ToolBrush, 10))
	assert.False(t, e.HasMarks())

	require.NoError(t, e.PointerDown(canvas.Point{X: 20, Y: 20}, canvas.ToolBrush, 10))
	assert.True(t, e.Drawing())
	require.NoError(t, e.PointerMove(canvas.Point{X: 80, Y: 80}, canvas.ToolBrush, 10))
	e.PointerLeave()
	assert.False(t, e.Drawing())
	require.NoError(t, e.PointerMove(canvas.Point{X: 80, Y: 20}, canvas.ToolBrush, 10))

	m, err := e.Mask()
	require.NoError(t, err)
	assert.Equal(t, mask.Remove, m.NRGBAAt(20, 20))
	assert.Equal(t, mask.Remove, m.NRGBAAt(80, 80))
	// 两次采样之间不插值
	assert.Equal(t, mask.Keep, m.NRGBAAt(50, 50))
	assert.Equal(t, mask.Keep, m.NRGBAAt(80, 20))

	// 橡皮擦掉一个点
	require.NoError(t, e.PointerDown(canvas.Point{X: 20, Y: 20}, canvas.ToolEraser, 12))
	e.PointerUp()
	m, err = e.Mask()
	require.NoError(t, err)
	assert.Equal(t, mask.Keep, m.NRGBAAt(20, 20))
	assert.True(t, e.HasMarks())
}

func TestEditor_ClearMaskIdempotent(t *testing.T) {
	t.Parallel()

	e, _ := newEditor(t, &fakeRemover{})
	require.NoError(t, e.Load(grayDataURL(t, 100, 100)))
	paintCenter(t, e)
	require.True(t, e.HasMarks())

	require.NoError(t, e.ClearMask())
	once, err := e.Composite()
	require.NoError(t, err)
	require.NoError(t, e.ClearMask())
	twice, err := e.Composite()
	require.NoError(t, err)

	assert.Equal(t, once.Pix, twice.Pix)
	assert.False(t, e.HasMarks())
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, twice.NRGBAAt(50, 50))
	assert.Equal(t, Editing, e.State())
}

func TestEditor_RemoveEmptyMask(t *testing.T) {
	t.Parallel()

	r := &fakeRemover{cleaned: "data:image/png;base64,AAA"}
	e, toasts := newEditor(t, r)

	require.ErrorIs(t, e.Remove(context.Background()), ErrNoImage)

	require.NoError(t, e.Load(grayDataURL(t, 100, 100)))
	require.ErrorIs(t, e.Remove(context.Background()), ErrEmptyMask)
	assert.Equal(t, Editing, e.State())
	assert.Zero(t, r.Calls())

	last, ok := toasts.Last()
	require.True(t, ok)
	assert.Equal(t, ErrEmptyMask.Error(), last.Message)
}

func TestEditor_RemoveSuccess(t *testing.T) {
	t.Parallel()

	r := &fakeRemover{cleaned: "data:image/png;base64,AAA"}
	e, toasts := newEditor(t, r)

	src := grayDataURL(t, 100, 100)
	require.NoError(t, e.Load(src))
	paintCenter(t, e)

	m, err := e.Mask()
	require.NoError(t, err)
	assert.Equal(t, mask.Remove, m.NRGBAAt(50, 50))
	assert.Equal(t, mask.Keep, m.NRGBAAt(10, 10))
	assert.InDelta(t, math.Pi*15*15, float64(mask.Count(m)), 60)

	require.NoError(t, e.Remove(context.Background()))
	assert.Equal(t, Resulted, e.State())
	result, ok := e.Result()
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,AAA", result)

	// 提交的是原图和同尺寸的掩码
	assert.Equal(t, src, r.image)
	sent, _, err := util.DecodeImageDataURL(r.mask)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), sent.Bounds())
	rr, _, _, _ := sent.At(50, 50).RGBA()
	assert.Equal(t, uint32(0xffff), rr)

	last, _ := toasts.Last()
	assert.Equal(t, LevelSuccess, last.Level)

	// Resulted 只能 reset
	require.ErrorIs(t, e.PointerDown(canvas.Point{X: 1, Y: 1}, canvas.ToolBrush, 5), ErrInvalidTransition)
	require.ErrorIs(t, e.Load(src), ErrInvalidTransition)
	require.ErrorIs(t, e.Remove(context.Background()), ErrInvalidTransition)

	e.Reset()
	assert.Equal(t, NoImage, e.State())
	_, ok = e.Result()
	assert.False(t, ok)
}

func TestEditor_RemoveMaskScaledToSource(t *testing.T) {
	t.Parallel()

	r := &fakeRemover{cleaned: "data:image/png;base64,AAA"}
	e, _ := newEditor(t, r)

	require.NoError(t, e.LoadWithFit(grayDataURL(t, 400, 200), canvas.Fit{MaxWidth: 100}))
	require.NoError(t, e.PointerDown(canvas.Point{X: 25, Y: 25}, canvas.ToolBrush, 10))
	e.PointerUp()
	require.NoError(t, e.Remove(context.Background()))

	sent, _, err := util.DecodeImageDataURL(r.mask)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 200), sent.Bounds())
	rr, _, _, _ := sent.At(100, 100).RGBA()
	assert.Equal(t, uint32(0xffff), rr)
	rr, _, _, _ = sent.At(300, 100).RGBA()
	assert.Zero(t, rr)
}

func TestEditor_RemoveServiceError(t *testing.T) {
	t.Parallel()

	r := &fakeRemover{err: &aiclient.ServiceError{StatusCode: 400, Message: "no objects marked"}}
	e, toasts := newEditor(t, r)

	require.NoError(t, e.Load(grayDataURL(t, 100, 100)))
	paintCenter(t, e)
	before, err := e.Composite()
	require.NoError(t, err)

	err = e.Remove(context.Background())
	require.Error(t, err)
	var svcErr *aiclient.ServiceError
	assert.True(t, errors.As(err, &svcErr))

	assert.Equal(t, Editing, e.State())
	last, ok := toasts.Last()
	require.True(t, ok)
	assert.Equal(t, LevelError, last.Level)
	assert.Contains(t, last.Message, "no objects marked")

	after, err := e.Composite()
	require.NoError(t, err)
	assert.Equal(t, before.Pix, after.Pix)
	assert.True(t, e.HasMarks())
	assert.False(t, e.Status().Busy)

	// 用户可以再次提交
	r.err = nil
	r.cleaned = "data:image/png;base64,BBB"
	require.NoError(t, e.Remove(context.Background()))
	assert.Equal(t, 2, r.Calls())
}

func TestEditor_BusyAndReset(t *testing.T) {
	t.Parallel()

	r := &fakeRemover{cleaned: "data:image/png;base64,AAA", block: make(chan struct{})}
	e, toasts := newEditor(t, r)
	require.NoError(t, e.Load(grayDataURL(t, 100, 100)))
	paintCenter(t, e)

	done := make(chan error, 1)
	go func() {
		done <- e.Remove(context.Background())
	}()
	require.Eventually(t, func() bool { return e.Status().Busy }, time.Second, 5*time.Millisecond)

	// 请求期间不能涂抹、清除或再次提交
	assert.ErrorIs(t, e.PointerDown(canvas.Point{X: 1, Y: 1}, canvas.ToolBrush, 5), ErrBusy)
	assert.ErrorIs(t, e.ClearMask(), ErrBusy)
	assert.ErrorIs(t, e.Remove(context.Background()), ErrBusy)
	assert.Equal(t, 1, r.Calls())

	// 重复提交会提示用户
	last, ok := toasts.Last()
	require.True(t, ok)
	assert.Equal(t, LevelError, last.Level)
	assert.Equal(t, ErrBusy.Error(), last.Message)

	// reset 不会取消请求，只丢弃结果
	e.Reset()
	assert.Equal(t, NoImage, e.State())
	close(r.block)

	assert.ErrorIs(t, <-done, ErrDiscarded)
	assert.Equal(t, NoImage, e.State())
	_, ok = e.Result()
	assert.False(t, ok)
}

func TestToasts_Bounded(t *testing.T) {
	t.Parallel()

	toasts := NewToasts(2)
	toasts.Notify(LevelInfo, "a")
	toasts.Notify(LevelInfo, "b")
	toasts.Notify(LevelError, "c")

	list := toasts.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Message)
	assert.Equal(t, "c", list[1].Message)
}
