package collab

import "context"

// Page is the publishable unit on the content-management collaborator.
type Page struct {
	Title   string
	Slug    string
	Markup  string
	Dialect string
	Live    bool
}

// Media is an uploaded asset on the CMS.
type Media struct {
	ID  string
	URL string
}

// SEOMetadata is the per-page search metadata.
type SEOMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// CMS is the content-management collaborator. All operations are idempotent
// by external page ID: create when absent, update when present.
type CMS interface {
	CreatePage(ctx context.Context, page *Page) (pageID string, err error)
	UpdatePage(ctx context.Context, pageID string, page *Page) error
	PageExists(ctx context.Context, pageID string) (bool, error)
	UploadMedia(ctx context.Context, name string, data []byte) (*Media, error)
	UpdateSEOMetadata(ctx context.Context, pageID string, meta *SEOMetadata) error
}
