package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaos-io/maskeraser/config"
	"github.com/chaos-io/maskeraser/mask"
	"github.com/chaos-io/maskeraser/svg"
	"github.com/chaos-io/maskeraser/util"
	"github.com/chaos-io/maskeraser/workflow"
	"go.uber.org/zap"
)

// runRemove 不经过画布，直接把本地 (或远程) 图片和黑白掩码提交给去除服务
// 输出 .svg 时包装成 SVG，其它扩展名写 PNG
func runRemove(ctx context.Context, cfg *config.Config, remover workflow.Remover, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	imagePath := fs.String("image", "", "image path or http(s) url")
	maskPath := fs.String("mask", "", "black/white mask png, white = remove")
	outPath := fs.String("out", "cleaned.png", "output path (.png or .svg)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *imagePath == "" || *maskPath == "" {
		return errors.New("-image and -mask are required")
	}

	var (
		src string
		err error
	)
	if strings.HasPrefix(*imagePath, "http://") || strings.HasPrefix(*imagePath, "https://") {
		src, err = util.DownloadImage(ctx, *imagePath, cfg.Server.MaxBodySize)
	} else {
		src, err = util.OpenImage(*imagePath)
	}
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	srcImg, _, err := util.DecodeImageDataURL(src)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	maskURL, err := util.OpenImage(*maskPath)
	if err != nil {
		return fmt.Errorf("load mask: %w", err)
	}
	maskImg, _, err := util.DecodeImageDataURL(maskURL)
	if err != nil {
		return fmt.Errorf("load mask: %w", err)
	}
	if maskImg.Bounds().Size() != srcImg.Bounds().Size() {
		return fmt.Errorf("mask size %v does not match image size %v", maskImg.Bounds().Size(), srcImg.Bounds().Size())
	}
	m := image.NewNRGBA(image.Rect(0, 0, maskImg.Bounds().Dx(), maskImg.Bounds().Dy()))
	draw.Draw(m, m.Bounds(), maskImg, maskImg.Bounds().Min, draw.Src)
	if mask.IsEmpty(m) {
		return workflow.ErrEmptyMask
	}

	util.Logger.Info("removing object", zap.String("image", *imagePath), zap.Int("marked_pixels", mask.Count(m)))
	cleaned, err := remover.RemoveObject(ctx, src, maskURL)
	if err != nil {
		return err
	}

	out, _, err := util.DecodeImageDataURL(cleaned)
	if err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	if strings.EqualFold(filepath.Ext(*outPath), ".svg") {
		err = svg.GenerateSVG(out, *outPath)
	} else {
		var data []byte
		if data, err = util.EncodePNG(out); err == nil {
			err = os.WriteFile(*outPath, data, 0o644)
		}
	}
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	util.Logger.Info("result saved", zap.String("path", *outPath))
	return nil
}
