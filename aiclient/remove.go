package aiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/chaos-io/maskeraser/util"
	"go.uber.org/zap"
)

type removeObjectReq struct {
	Image string `json:"image"`
	Mask  string `json:"mask"`
}

type removeObjectResp struct {
	CleanedImage string `json:"cleanedImage"`
	Error        string `json:"error"`
}

// RemoveObject 提交原图和掩码（都是 data URL），返回去除物体后的图片 data URL
func (c *Client) RemoveObject(ctx context.Context, image, mask string) (string, error) {
	key := cacheKey(image, mask)
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			util.Logger.Warn("failed to get cache", zap.Error(err))
		} else if ok {
			util.Logger.Info("cache hit", zap.String("cache_key", key))
			return cached, nil
		}
	}

	defer util.Trace("remove object")()

	var resp removeObjectResp
	err := c.Post(ctx, RemoveObjectPath, &removeObjectReq{Image: image, Mask: mask}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &ServiceError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	if resp.CleanedImage == "" {
		return "", errors.New("remove object: empty cleanedImage in response")
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, resp.CleanedImage); err != nil {
			util.Logger.Warn("failed to set cache", zap.Error(err))
		}
	}

	return resp.CleanedImage, nil
}

func cacheKey(image, mask string) string {
	return util.BytesMD5([]byte(image), []byte{0}, []byte(mask))
}
