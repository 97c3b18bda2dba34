package server

import (
	"bytes"
	"context"
	"errors"
	"image"
	"net/http"
	"strconv"
	"strings"

	"github.com/chaos-io/maskeraser/aiclient"
	"github.com/chaos-io/maskeraser/canvas"
	"github.com/chaos-io/maskeraser/compare"
	"github.com/chaos-io/maskeraser/config"
	"github.com/chaos-io/maskeraser/svg"
	"github.com/chaos-io/maskeraser/util"
	"github.com/chaos-io/maskeraser/workflow"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	cfg   *config.Config
	store *SessionStore
}

func NewHandler(cfg *config.Config, store *SessionStore) *Handler {
	return &Handler{
		cfg:   cfg,
		store: store,
	}
}

// CreateSession 新建 session
func (h *Handler) CreateSession(c *gin.Context) {
	sess := h.store.Create()
	c.JSON(http.StatusCreated, h.sessionResponse(sess))
}

// GetSession 查询状态和提示
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(sess))
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// LoadImage 上传图片 (data URL 或远程地址)
func (h *Handler) LoadImage(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req LoadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request", Error: err.Error()})
		return
	}

	dataURL := strings.TrimSpace(req.Image)
	if dataURL == "" && req.URL != "" {
		ctx := c.Request.Context()
		if h.cfg.Server.DownloadTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, h.cfg.Server.DownloadTimeout)
			defer cancel()
		}
		var err error
		if dataURL, err = util.DownloadImage(ctx, req.URL, h.cfg.Server.MaxBodySize); err != nil {
			util.Logger.Warn("failed to download image", zap.String("url", req.URL), zap.Error(err))
			sess.Toasts.Notify(workflow.LevelError, "Failed to load image: "+err.Error())
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "failed to download image", Error: err.Error()})
			return
		}
	}
	if dataURL == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "image or url is required"})
		return
	}

	if err := sess.Editor.LoadWithFit(dataURL, h.fit(req)); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		h.fail(c, status, "failed to load image", err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(sess))
}

// Stroke 应用一笔涂抹或擦除
func (h *Handler) Stroke(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req StrokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request", Error: err.Error()})
		return
	}
	tool, err := canvas.ParseTool(req.Tool)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid tool", Error: err.Error()})
		return
	}

	// 半径和画笔大小都限制在画笔范围内
	var radius float64
	if req.Radius > 0 {
		radius = canvas.ClampRadius(req.Radius)
	} else {
		size := req.BrushSize
		if size == 0 {
			size = h.cfg.Canvas.BrushSize
		}
		radius = canvas.BrushRadius(size)
	}

	st := sess.Editor.Status()
	points := req.Points
	if req.Display != nil {
		points = make([]canvas.Point, len(req.Points))
		for i, p := range req.Points {
			points[i] = canvas.ClientToCanvas(p.X, p.Y, *req.Display, st.Width, st.Height)
		}
	}

	defer sess.Editor.PointerUp()
	if err := sess.Editor.PointerDown(points[0], tool, radius); err != nil {
		h.fail(c, statusFor(err), "failed to apply stroke", err)
		return
	}
	for _, p := range points[1:] {
		if err := sess.Editor.PointerMove(p, tool, radius); err != nil {
			h.fail(c, statusFor(err), "failed to apply stroke", err)
			return
		}
	}
	c.JSON(http.StatusOK, h.sessionResponse(sess))
}

// ClearMask 清除所有笔画
func (h *Handler) ClearMask(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := sess.Editor.ClearMask(); err != nil {
		h.fail(c, statusFor(err), "failed to clear mask", err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(sess))
}

// GetMask 黑白掩码 PNG
func (h *Handler) GetMask(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	m, err := sess.Editor.Mask()
	if err != nil {
		h.fail(c, statusFor(err), "failed to extract mask", err)
		return
	}
	h.png(c, m)
}

// GetCanvas 当前画面 PNG
func (h *Handler) GetCanvas(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	img, err := sess.Editor.Composite()
	if err != nil {
		h.fail(c, statusFor(err), "failed to render canvas", err)
		return
	}
	h.png(c, img)
}

// Remove 提交给远端服务，请求发出后不随客户端断开而取消
func (h *Handler) Remove(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	if err := sess.Editor.Remove(ctx); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError && !errors.Is(err, workflow.ErrNoCanvas) {
			// 网络错误
			status = http.StatusBadGateway
		}
		h.fail(c, status, "failed to remove object", err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(sess))
}

// GetResult format: dataurl (默认) / png / svg
func (h *Handler) GetResult(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	result, ok := sess.Editor.Result()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "no result yet"})
		return
	}

	switch format := c.DefaultQuery("format", "dataurl"); format {
	case "dataurl":
		c.JSON(http.StatusOK, ResultResponse{Success: true, CleanedImage: result})
	case "png":
		img, _, err := util.DecodeImageDataURL(result)
		if err != nil {
			h.fail(c, http.StatusBadGateway, "invalid result image", err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="cleaned.png"`)
		h.png(c, img)
	case "svg":
		out, err := svg.Wrap(result)
		if err != nil {
			h.fail(c, http.StatusBadGateway, "invalid result image", err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="cleaned.svg"`)
		c.Data(http.StatusOK, "image/svg+xml", []byte(out))
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "unsupported format " + strconv.Quote(format)})
	}
}

// Compare 原图和结果的对比图，position 缺省时使用分割线当前位置
func (h *Handler) Compare(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	result, ok := sess.Editor.Result()
	before, hasSrc := sess.Editor.Source()
	if !ok || !hasSrc {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "no result yet"})
		return
	}

	position := sess.Slider.Position()
	if q := c.Query("position"); q != "" {
		v, err := strconv.ParseFloat(q, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid position", Error: err.Error()})
			return
		}
		position = v
	}

	after, _, err := util.DecodeImageDataURL(result)
	if err != nil {
		h.fail(c, http.StatusBadGateway, "invalid result image", err)
		return
	}
	h.png(c, compare.Compose(before, after, position))
}

// Slider 对比分割线的指针事件
func (h *Handler) Slider(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req SliderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request", Error: err.Error()})
		return
	}

	applied := true
	switch req.Event {
	case "down":
		sess.Slider.PointerDown(req.ClientX, req.Display)
	case "move":
		sess.Slider.PointerMove(req.ClientX, req.Display)
	case "up":
		sess.Slider.PointerUp()
	case "click":
		applied = sess.Slider.Click(req.ClientX, req.Display)
	}
	c.JSON(http.StatusOK, SliderResponse{Success: true, Position: sess.Slider.Position(), Applied: applied})
}

// Reset 回到初始状态
func (h *Handler) Reset(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sess.Editor.Reset()
	c.JSON(http.StatusOK, h.sessionResponse(sess))
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	sess, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "session not found"})
		return nil, false
	}
	return sess, true
}

func (h *Handler) sessionResponse(sess *Session) SessionResponse {
	return SessionResponse{
		Success:       true,
		ID:            sess.ID,
		Status:        sess.Editor.Status(),
		Notifications: sess.Toasts.List(),
	}
}

func (h *Handler) fit(req LoadImageRequest) canvas.Fit {
	width := req.ContainerWidth
	if width <= 0 {
		width = h.cfg.Canvas.ContainerWidth
	}
	height := req.ViewportHeight
	if height <= 0 {
		height = h.cfg.Canvas.ViewportHeight
	}
	return canvas.NewFit(width, height, h.cfg.Canvas.MaxHeightRatio)
}

func (h *Handler) png(c *gin.Context, img image.Image) {
	data, err := util.EncodePNG(img)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to encode image", err)
		return
	}
	c.DataFromReader(http.StatusOK, int64(len(data)), "image/png", bytes.NewReader(data), nil)
}

func (h *Handler) fail(c *gin.Context, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		util.Logger.Error(message, zap.String("session", c.Param("id")), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Message: message, Error: err.Error()})
}

// statusFor 错误到 HTTP 状态码
func statusFor(err error) int {
	var svcErr *aiclient.ServiceError
	switch {
	case errors.Is(err, workflow.ErrBusy),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrNoImage),
		errors.Is(err, workflow.ErrDiscarded):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrEmptyMask):
		return http.StatusUnprocessableEntity
	case errors.As(err, &svcErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
