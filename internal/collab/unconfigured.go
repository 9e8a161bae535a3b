package collab

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by collaborator slots that have no endpoint
// configured. Preflight surfaces this as a configuration failure before any
// downstream phase can touch the collaborator.
var ErrNotConfigured = errors.New("collaborator not configured")

// Unconfigured satisfies every collaborator interface by failing. The daemon
// wires it into any slot whose endpoint is absent from config so a triggered
// run fails loudly at preflight instead of panicking mid-pipeline.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, *CompletionRequest) (*Completion, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) CreatePage(context.Context, *Page) (string, error) { return "", ErrNotConfigured }
func (Unconfigured) UpdatePage(context.Context, string, *Page) error   { return ErrNotConfigured }
func (Unconfigured) PageExists(context.Context, string) (bool, error)  { return false, ErrNotConfigured }
func (Unconfigured) UploadMedia(context.Context, string, []byte) (*Media, error) {
	return nil, ErrNotConfigured
}
func (Unconfigured) UpdateSEOMetadata(context.Context, string, *SEOMetadata) error {
	return ErrNotConfigured
}

func (Unconfigured) GetFile(context.Context, string) (*DesignFile, error) {
	return nil, ErrNotConfigured
}
func (Unconfigured) ExportImages(context.Context, string, []string, ExportScale) (map[string]string, error) {
	return nil, ErrNotConfigured
}
func (Unconfigured) DownloadImage(context.Context, string) ([]byte, error) {
	return nil, ErrNotConfigured
}
func (Unconfigured) ExtractSections(*DesignFile) []Section     { return nil }
func (Unconfigured) ExtractColors(*DesignFile) []string        { return nil }
func (Unconfigured) ExtractTypography(*DesignFile) []TextStyle { return nil }

func (Unconfigured) Screenshot(context.Context, string, Viewport) ([]byte, error) {
	return nil, ErrNotConfigured
}
func (Unconfigured) Audit(context.Context, string) (map[string]int, error) {
	return nil, ErrNotConfigured
}
func (Unconfigured) Fetch(context.Context, string) (*PageContent, error) {
	return nil, ErrNotConfigured
}
