package util

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrEmptyDataURL = errors.New("empty data url")

func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL 解析 data:<mime>;base64,<payload>，也接受不带前缀的 base64
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", ErrEmptyDataURL
	}

	var mime string
	if strings.HasPrefix(strings.ToLower(s), "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, "", errors.New("malformed data url: missing comma")
		}
		meta := s[len("data:"):idx]
		if semi := strings.IndexByte(meta, ';'); semi >= 0 {
			mime = meta[:semi]
		} else {
			mime = meta
		}
		s = s[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// URL-safe 变体
		var err2 error
		if data, err2 = base64.URLEncoding.DecodeString(s); err2 != nil {
			return nil, "", fmt.Errorf("decode base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyDataURL
	}
	if mime == "" {
		mime = SniffMime(data)
	}
	return data, mime, nil
}

// DecodeImageDataURL 解析 data URL 并解码成图片
func DecodeImageDataURL(s string) (image.Image, string, error) {
	data, mime, err := DecodeDataURL(s)
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, "", errors.New("decode image: empty bounds")
	}
	return img, mime, nil
}

// EncodePNGDataURL 把图片编码成 PNG data URL
func EncodePNGDataURL(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return MakeDataURL("image/png", data), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

func SniffMime(data []byte) string {
	return http.DetectContentType(data)
}
