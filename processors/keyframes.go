package processors

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"math"

	"multimodalRAG/core"
)

// DefaultSceneThreshold 平均逐通道像素差的默认阈值（0-255 量纲）
const DefaultSceneThreshold = 25.0

// SelectKeyFrames keeps the first sample and then every sample whose mean
// absolute per-channel difference against the previous sample exceeds
// threshold. Single pass, compared against the previous sample whether or
// not that one was kept.
func SelectKeyFrames(samples []core.FrameSample, threshold float64) []core.KeyFrame {
	if len(samples) == 0 {
		return nil
	}
	keys := []core.KeyFrame{samples[0]}
	for i := 1; i < len(samples); i++ {
		if MeanAbsDiff(samples[i-1].Image, samples[i].Image) > threshold {
			keys = append(keys, samples[i])
		}
	}
	return keys
}

// MeanAbsDiff returns the mean absolute difference over the R, G and B
// channels in 8-bit scale. Images of different size, or a nil image,
// count as maximally different (255).
func MeanAbsDiff(a, b image.Image) float64 {
	if a == nil || b == nil {
		return 255
	}
	ra, rb := a.Bounds(), b.Bounds()
	if ra.Dx() != rb.Dx() || ra.Dy() != rb.Dy() {
		return 255
	}
	w, h := ra.Dx(), ra.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r1, g1, b1, _ := a.At(ra.Min.X+x, ra.Min.Y+y).RGBA()
			r2, g2, b2, _ := b.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			sum += chanDiff(r1, r2) + chanDiff(g1, g2) + chanDiff(b1, b2)
		}
	}
	return sum / float64(w*h*3)
}

func chanDiff(x, y uint32) float64 {
	// RGBA() 返回 16 位通道，转回 8 位
	return math.Abs(float64(x>>8) - float64(y>>8))
}

// EncodeFrameBase64 把帧编码为 JPEG 再转 base64，供存储和多模态请求使用
func EncodeFrameBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
