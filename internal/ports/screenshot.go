package ports

import "context"

// Screenshotter captures diagnostic screenshots.
type Screenshotter interface {
	// TakeScreenshotWithTimestamp writes a screenshot named after the
	// current time into dir and returns its path.
	TakeScreenshotWithTimestamp(ctx context.Context, dir string) (string, error)
}
