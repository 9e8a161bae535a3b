package collab

import "context"

// Viewport is one named breakpoint for rendering.
type Viewport struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// DefaultViewports are the breakpoints scored by visual comparison. The
// overall score weights desktop at 0.5 and tablet/mobile at 0.25 each.
func DefaultViewports() []Viewport {
	return []Viewport{
		{Name: "desktop", Width: 1440, Height: 900},
		{Name: "tablet", Width: 768, Height: 1024},
		{Name: "mobile", Width: 375, Height: 812},
	}
}

// PageContent is a fetched page: title, text, and raw HTML.
type PageContent struct {
	URL        string
	Status     int
	Title      string
	HTML       string
	DurationMs int64
}

// Browser is the headless-browser collaborator.
type Browser interface {
	Screenshot(ctx context.Context, url string, viewport Viewport) ([]byte, error)

	// Audit runs a page audit and returns category scores (0-100).
	Audit(ctx context.Context, url string) (map[string]int, error)

	Fetch(ctx context.Context, url string) (*PageContent, error)
}
