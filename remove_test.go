package main

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/chaos-io/maskeraser/aiclient"
	"github.com/chaos-io/maskeraser/config"
	"github.com/chaos-io/maskeraser/mask"
	"github.com/chaos-io/maskeraser/util"
	"github.com/chaos-io/maskeraser/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	data, err := util.EncodePNG(img)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func filled(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestRunRemove(t *testing.T) {
	dir := t.TempDir()
	imagePath := writePNG(t, dir, "in.png", filled(8, 6, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))

	marked := filled(8, 6, mask.Keep)
	marked.SetNRGBA(3, 3, mask.Remove)
	maskPath := writePNG(t, dir, "mask.png", marked)
	emptyMaskPath := writePNG(t, dir, "empty.png", filled(8, 6, mask.Keep))
	smallMaskPath := writePNG(t, dir, "small.png", filled(4, 3, mask.Remove))

	cleaned, err := util.EncodePNGDataURL(filled(8, 6, color.NRGBA{R: 200, G: 200, B: 200, A: 255}))
	require.NoError(t, err)

	var calls atomic.Int32
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"cleanedImage": cleaned})
	}))
	defer remote.Close()

	cfg := config.New()
	remover := aiclient.New(remote.URL)

	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, out string)
	}{
		{
			name: "输出 PNG",
			args: []string{"-image", imagePath, "-mask", maskPath, "-out", filepath.Join(dir, "out.png")},
			check: func(t *testing.T, out string) {
				u, err := util.OpenImage(out)
				require.NoError(t, err)
				img, mime, err := util.DecodeImageDataURL(u)
				require.NoError(t, err)
				assert.Equal(t, "image/png", mime)
				assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
			},
		},
		{
			name: "输出 SVG",
			args: []string{"-image", imagePath, "-mask", maskPath, "-out", filepath.Join(dir, "out.svg")},
			check: func(t *testing.T, out string) {
				data, err := os.ReadFile(out)
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(string(data), "<svg"))
				assert.Contains(t, string(data), `width="8" height="6"`)
			},
		},
		{name: "缺少参数", args: []string{"-image", imagePath}, wantErr: "-image and -mask are required"},
		{name: "掩码为空", args: []string{"-image", imagePath, "-mask", emptyMaskPath}, wantErr: workflow.ErrEmptyMask.Error()},
		{name: "尺寸不一致", args: []string{"-image", imagePath, "-mask", smallMaskPath}, wantErr: "does not match image size"},
		{name: "图片不存在", args: []string{"-image", filepath.Join(dir, "missing.png"), "-mask", maskPath}, wantErr: "load image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := calls.Load()
			err := runRemove(context.Background(), cfg, remover, tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Equal(t, before, calls.Load())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, before+1, calls.Load())
			tt.check(t, tt.args[len(tt.args)-1])
		})
	}
}
