// Package aiclient 调用远端 AI 图片服务
//
// 所有接口 (remove-object、enhance-image、translate-image、detect-text、
// translate-text) 都是 POST JSON，成功时返回结果字段，失败时返回
// {"error": "..."}。
package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chaos-io/maskeraser/util"
	nhttp "github.com/chaos-io/maskeraser/util/http"
	"go.uber.org/zap"
)

const RemoveObjectPath = "/api/remove-object"

// ServiceError 服务端返回的错误，Message 原样展示给用户
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Cache 缓存移除结果，可为空
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type Client struct {
	baseURL string
	cli     nhttp.IClient
	cache   Cache
}

type Option func(c *Client)

func WithHTTPClient(cli nhttp.IClient) Option {
	return func(c *Client) {
		c.cli = cli
	}
}

func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	// 去除物体耗时不定，默认不设超时
	if c.cli == nil {
		c.cli = nhttp.NewHTTPClient(nhttp.WithTimeout(0))
	}
	return c
}

// errorResp 所有接口共用的错误字段
type errorResp struct {
	Error string `json:"error"`
}

// Post 发送一次请求，不重试
// 非 2xx 响应转换成 *ServiceError；2xx 里的 error 字段由调用方检查
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	reqParam := &nhttp.RequestParam{
		RequestURI: c.baseURL + path,
		Method:     http.MethodPost,
		Header:     map[string]string{"Content-Type": "application/json"},
		Body:       body,
		Response:   out,
	}

	err := c.cli.DoHTTPRequest(ctx, reqParam)
	if err == nil {
		return nil
	}

	var statusErr *nhttp.StatusError
	if errors.As(err, &statusErr) {
		msg := strings.TrimSpace(string(statusErr.Body))
		var e errorResp
		if jerr := json.Unmarshal(statusErr.Body, &e); jerr == nil && e.Error != "" {
			msg = e.Error
		}
		if msg == "" {
			msg = http.StatusText(statusErr.StatusCode)
		}
		util.Logger.Warn("ai service returned error",
			zap.String("path", path),
			zap.Int("status", statusErr.StatusCode),
			zap.String("error", msg))
		return &ServiceError{StatusCode: statusErr.StatusCode, Message: msg}
	}

	return fmt.Errorf("request %s: %w", path, err)
}
