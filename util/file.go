package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrImageTooLarge 下载的图片超过大小限制
var ErrImageTooLarge = errors.New("image too large")

// ctx 没有 deadline 时的兜底超时
var downloadClient = &http.Client{Timeout: 30 * time.Second}

// DownloadImage 下载图片，返回 data URL
// maxSize > 0 时，超过 maxSize 字节返回 ErrImageTooLarge
func DownloadImage(ctx context.Context, url string, maxSize int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status code %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if maxSize > 0 {
		if resp.ContentLength > maxSize {
			return "", fmt.Errorf("%w: %d bytes", ErrImageTooLarge, resp.ContentLength)
		}
		body = io.LimitReader(resp.Body, maxSize+1)
	}

	imgData, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if maxSize > 0 && int64(len(imgData)) > maxSize {
		return "", fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, maxSize)
	}

	return MakeDataURL(SniffMime(imgData), imgData), nil
}

// OpenImage 打开本地图片，返回 data URL
func OpenImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return MakeDataURL(SniffMime(data), data), nil
}
