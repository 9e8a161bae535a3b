package phases

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/config"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"go.uber.org/zap"
)

// fakeAI replays scripted responses in order, then repeats the last one.
type fakeAI struct {
	responses []string
	err       error
	calls     int
	requests  []*collab.CompletionRequest
}

func (f *fakeAI) Complete(_ context.Context, req *collab.CompletionRequest) (*collab.Completion, error) {
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &collab.Completion{Text: "{}"}, nil
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return &collab.Completion{Text: f.responses[idx]}, nil
}

type fakeCMS struct {
	pages        map[string]*collab.Page
	seo          map[string]*collab.SEOMetadata
	uploads      int
	uploadErr    error
	createErr    error
	updateErr    error
	existsErr    error
	seoErr       error
	nextPageID   string
	updatedPages []string
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{
		pages:      make(map[string]*collab.Page),
		seo:        make(map[string]*collab.SEOMetadata),
		nextPageID: "page-1",
	}
}

func (f *fakeCMS) CreatePage(_ context.Context, page *collab.Page) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	id := f.nextPageID
	f.pages[id] = page
	return id, nil
}

func (f *fakeCMS) UpdatePage(_ context.Context, pageID string, page *collab.Page) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.pages[pageID] = page
	f.updatedPages = append(f.updatedPages, pageID)
	return nil
}

func (f *fakeCMS) PageExists(_ context.Context, pageID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.pages[pageID]
	return ok, nil
}

func (f *fakeCMS) UploadMedia(_ context.Context, name string, _ []byte) (*collab.Media, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	return &collab.Media{ID: fmt.Sprintf("media-%d", f.uploads), URL: "https://cdn.example.com/" + name}, nil
}

func (f *fakeCMS) UpdateSEOMetadata(_ context.Context, pageID string, meta *collab.SEOMetadata) error {
	if f.seoErr != nil {
		return f.seoErr
	}
	f.seo[pageID] = meta
	return nil
}

// exportCall records one ExportImages invocation.
type exportCall struct {
	first string
	scale collab.ExportScale
}

// fakeDesign serves a fixed file and export map. failBatches marks first
// node IDs whose exports fail at every scale; failFullScale marks first
// node IDs that fail only at full scale.
type fakeDesign struct {
	file          *collab.DesignFile
	fileErr       error
	sections      []collab.Section
	colors        []string
	typography    []collab.TextStyle
	failBatches   map[string]bool
	failFullScale map[string]bool
	exportCalls   []exportCall
	downloadErr   error
}

func (f *fakeDesign) GetFile(_ context.Context, _ string) (*collab.DesignFile, error) {
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	return f.file, nil
}

func (f *fakeDesign) ExportImages(_ context.Context, _ string, nodeIDs []string, scale collab.ExportScale) (map[string]string, error) {
	first := ""
	if len(nodeIDs) > 0 {
		first = nodeIDs[0]
	}
	f.exportCalls = append(f.exportCalls, exportCall{first: first, scale: scale})

	if f.failBatches[first] {
		return nil, fmt.Errorf("export failed for batch starting at %s", first)
	}
	if f.failFullScale[first] && scale == collab.ScaleFull {
		return nil, fmt.Errorf("full-scale export failed for batch starting at %s", first)
	}

	out := make(map[string]string, len(nodeIDs))
	for _, id := range nodeIDs {
		out[id] = "https://design.example.com/export/" + id
	}
	return out, nil
}

func (f *fakeDesign) DownloadImage(_ context.Context, url string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return []byte("img:" + url), nil
}

func (f *fakeDesign) ExtractSections(_ *collab.DesignFile) []collab.Section { return f.sections }
func (f *fakeDesign) ExtractColors(_ *collab.DesignFile) []string           { return f.colors }
func (f *fakeDesign) ExtractTypography(_ *collab.DesignFile) []collab.TextStyle {
	return f.typography
}

type fakeBrowser struct {
	shot       []byte
	shotErr    error
	html       string
	fetchErr   error
	audit      map[string]int
	auditErr   error
	fetchCalls int
}

func (f *fakeBrowser) Screenshot(_ context.Context, _ string, _ collab.Viewport) ([]byte, error) {
	if f.shotErr != nil {
		return nil, f.shotErr
	}
	return f.shot, nil
}

func (f *fakeBrowser) Audit(_ context.Context, _ string) (map[string]int, error) {
	if f.auditErr != nil {
		return nil, f.auditErr
	}
	return f.audit, nil
}

func (f *fakeBrowser) Fetch(_ context.Context, url string) (*collab.PageContent, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &collab.PageContent{URL: url, Status: 200, HTML: f.html}, nil
}

// fakeHead answers probes from a status map; unknown URLs get 200.
type fakeHead struct {
	statuses map[string]int
	sizes    map[string]int64
	err      error
	probed   []string
}

func (f *fakeHead) Head(_ context.Context, url string) (*collab.HeadResult, error) {
	f.probed = append(f.probed, url)
	if f.err != nil {
		return nil, f.err
	}
	status, ok := f.statuses[url]
	if !ok {
		status = 200
	}
	return &collab.HeadResult{Status: status, ContentLength: f.sizes[url]}, nil
}

func testDeps() *Deps {
	return &Deps{
		AI:      &fakeAI{},
		CMS:     newFakeCMS(),
		Design:  &fakeDesign{file: &collab.DesignFile{Key: "fk"}},
		Browser: &fakeBrowser{shot: []byte("png")},
		Head:    &fakeHead{},
		Cfg: config.PipelineConfig{
			VisualThreshold:  85,
			MaxFixIterations: 3,
			AssetBatchSize:   10,
			MinMarkupLength:  500,
			MaxImageBytes:    800 * 1024,
			LinkCheckLimit:   20,
			Timeouts: config.TimeoutConfig{
				HeadCheck:  time.Second,
				Screenshot: time.Second,
				Audit:      time.Second,
				PageFetch:  time.Second,
			},
		},
		AITokens: 1024,
		Dialects: BuiltinDialects(),
		Logger:   zap.NewNop(),
	}
}

func testContext(kind pipeline.Kind) *pipeline.HandlerContext {
	return &pipeline.HandlerContext{
		Run: &pipeline.BuildRun{ID: "build-1", ProfileID: "prof-1", Pipeline: kind},
		Profile: &pipeline.Profile{
			ID:            "prof-1",
			SiteName:      "Acme Plumbing",
			Dialect:       "html",
			DesignFileKey: "fk",
			SiteURL:       "https://acme.example.com",
			BusinessBrief: "Family plumbing business serving the metro area.",
		},
		Artifacts: pipeline.Artifacts{},
	}
}
