package http

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 描述一次请求
// Body 支持 nil、io.Reader、[]byte、string，其它类型按 JSON 序列化
// Response 非空时把响应体按 JSON 解析进去
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	// Timeout 为 0 时不额外设置超时，由 client 自身决定
	Timeout time.Duration
}
