package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"

	"golang.org/x/image/draw"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/functionRuntimeInterface"
)

type InputData struct {
	Image  []byte `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func main() {
	f := functionRuntimeInterface.New()
	f.Ready(function.RequestResponseFunc(handler))
}

// Inspired by https://github.com/spcl/serverless-benchmarks/blob/master/benchmarks/200.multimedia/210.thumbnailer/python/function.py
func handler(ctx context.Context, in *function.Request, w function.ResponseWriter) error {
	var input InputData
	if err := json.Unmarshal([]byte(in.Data), &input); err != nil {
		return badRequest(w, fmt.Sprintf("failed to decode input: %v", err))
	}
	if input.Width <= 0 || input.Height <= 0 {
		return badRequest(w, "width and height must be positive")
	}

	resized, err := resizeImage(input.Image, input.Width, input.Height)
	if err != nil {
		return fmt.Errorf("resize failed: %w", err)
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("X-Thumbnail-Size", strconv.Itoa(input.Width)+"x"+strconv.Itoa(input.Height))
	if _, err := w.Write(resized); err != nil {
		return err
	}
	return w.End()
}

func badRequest(w function.ResponseWriter, msg string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	if _, err := w.Write([]byte(msg + "\n")); err != nil {
		return err
	}
	return w.End()
}

func resizeImage(input []byte, w, h int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, nil); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}
