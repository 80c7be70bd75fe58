// Package screenshot writes timestamped diagnostic screenshots.
//
// Pixel capture is delegated to a Grabber supplied by the UI driver; this
// package only names, encodes and stores the image.
package screenshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the date part of screenshot file names. Milliseconds
// are appended, e.g. 2026_01_02_03_04_05_678.
const TimestampLayout = "2006_01_02_15_04_05"

// FileName returns the screenshot file name for t.
func FileName(t time.Time) string {
	return fmt.Sprintf("%s_%03d.png", t.Format(TimestampLayout), t.Nanosecond()/int(time.Millisecond))
}

// maxNameAttempts bounds the suffixes tried when captures share a millisecond.
const maxNameAttempts = 100

// createUnique creates name in dir without replacing an existing file.
// Taken names get a numeric suffix: name_1.png, name_2.png and so on.
func createUnique(dir, name string) (*os.File, error) {
	stem := strings.TrimSuffix(name, ".png")
	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d.png", stem, i)
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return f, err
	}
	return nil, fmt.Errorf("no free file name for %s after %d attempts", name, maxNameAttempts)
}

// Grabber captures the current screen.
type Grabber interface {
	Grab(ctx context.Context) (image.Image, error)
}

// GrabberFunc adapts a function to the Grabber interface.
type GrabberFunc func(ctx context.Context) (image.Image, error)

// Grab calls f.
func (f GrabberFunc) Grab(ctx context.Context) (image.Image, error) {
	return f(ctx)
}

// BlankGrabber produces a blank image of a fixed size. Used when no UI
// driver is attached.
type BlankGrabber struct {
	Width, Height int
}

// Grab returns a white image.
func (b BlankGrabber) Grab(ctx context.Context) (image.Image, error) {
	w, h := b.Width, b.Height
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img, nil
}

// Service writes screenshots obtained from a Grabber.
type Service struct {
	grabber Grabber
	now     func() time.Time
}

// New creates a screenshot service. now may be nil to use time.Now.
func New(grabber Grabber, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{grabber: grabber, now: now}
}

// TakeScreenshotWithTimestamp captures the screen into dir and returns the
// written path. dir is created if missing.
func (s *Service) TakeScreenshotWithTimestamp(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, err := s.grabber.Grab(ctx)
	if err != nil {
		return "", fmt.Errorf("grab screen: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	f, err := createUnique(dir, FileName(s.now()))
	if err != nil {
		return "", fmt.Errorf("create screenshot: %w", err)
	}
	path := f.Name()
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close screenshot: %w", err)
	}
	return path, nil
}
