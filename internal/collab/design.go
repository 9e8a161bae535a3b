package collab

import "context"

// Frame is one top-level frame in a design file.
type Frame struct {
	ID    string
	Name  string
	Width int
}

// Section is one extracted content section of a design.
type Section struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Text     string   `json:"text,omitempty"`
	ImageIDs []string `json:"image_ids,omitempty"`
}

// TextStyle is one typography style used in a design.
type TextStyle struct {
	Family string  `json:"family"`
	Size   float64 `json:"size"`
	Weight int     `json:"weight"`
}

// DesignFile is the fetched design source document.
type DesignFile struct {
	Key    string
	Name   string
	Frames []Frame
}

// ExportScale selects export fidelity for image assets.
type ExportScale float64

const (
	// ScaleFull is the preferred export fidelity.
	ScaleFull ExportScale = 2.0

	// ScaleReduced is the retry fidelity after a full-scale batch fails.
	ScaleReduced ExportScale = 1.0
)

// DesignSource is the design-file extraction collaborator.
type DesignSource interface {
	GetFile(ctx context.Context, fileKey string) (*DesignFile, error)

	// ExportImages resolves node IDs to downloadable URLs at the given
	// scale. A failed batch returns an error for the whole call.
	ExportImages(ctx context.Context, fileKey string, nodeIDs []string, scale ExportScale) (map[string]string, error)

	DownloadImage(ctx context.Context, url string) ([]byte, error)

	ExtractSections(file *DesignFile) []Section
	ExtractColors(file *DesignFile) []string
	ExtractTypography(file *DesignFile) []TextStyle
}
