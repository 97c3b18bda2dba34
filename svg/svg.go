package svg

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/chaos-io/maskeraser/util"
)

// GenerateSVG 把图片包装成 SVG 写入文件
func GenerateSVG(img image.Image, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	return Encode(f, img)
}

// Encode 输出一个只包含一张内嵌 PNG 的 SVG，尺寸和 viewBox 与图片一致
func Encode(w io.Writer, img image.Image) error {
	href, err := util.EncodePNGDataURL(img)
	if err != nil {
		return err
	}
	b := img.Bounds()
	return write(w, b.Dx(), b.Dy(), href)
}

// Wrap 把图片 data URL 转成 SVG 文本
// PNG 直接内嵌，其它格式先转成 PNG
func Wrap(dataURL string) (string, error) {
	data, mime, err := util.DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image config: %w", err)
	}

	href := util.MakeDataURL(mime, data)
	if mime != "image/png" {
		img, _, err := util.DecodeImageDataURL(dataURL)
		if err != nil {
			return "", err
		}
		if href, err = util.EncodePNGDataURL(img); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := write(&buf, cfg.Width, cfg.Height, href); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func write(w io.Writer, width, height int, href string) error {
	bw := bufio.NewWriter(w)
	_, _ = fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", width, height, width, height)
	_, _ = fmt.Fprintf(bw, `  <image width="%d" height="%d" href="%s" xlink:href="%s"/>`+"\n", width, height, href, href)
	_, _ = fmt.Fprintf(bw, "</svg>\n")
	return bw.Flush()
}
