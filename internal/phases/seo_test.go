package phases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seoContext() *pipeline.HandlerContext {
	hc := testContext(pipeline.KindBuild)
	hc.Artifacts[pipeline.PhaseDeploy] = &DeployResult{PageID: "page-1", URL: "https://acme.example.com/home"}
	hc.Artifacts[pipeline.PhaseAnalysis] = &AnalysisResult{Summary: "Single-page plumbing site with a bold hero."}
	return hc
}

func TestSEO_AppliesModelMetadata(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{
		`{"title": "Acme Plumbing | Metro Area Plumbers", "description": "Licensed plumbers on call.", "keywords": "plumbing, emergency"}`,
	}}
	cms := newFakeCMS()
	deps.CMS = cms
	h := &SEO{deps: deps}

	result, err := h.Execute(context.Background(), seoContext())
	require.NoError(t, err)

	s := result.Value.(*SEOResult)
	assert.True(t, s.Applied)
	assert.True(t, s.FromModel)
	assert.Equal(t, "Acme Plumbing | Metro Area Plumbers", s.Meta.Title)

	applied := cms.seo["page-1"]
	require.NotNil(t, applied)
	assert.Equal(t, "Licensed plumbers on call.", applied.Description)
}

func TestSEO_FallsBackToDerivedMetadata(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{err: errors.New("model overloaded")}
	cms := newFakeCMS()
	deps.CMS = cms
	h := &SEO{deps: deps}

	result, err := h.Execute(context.Background(), seoContext())
	require.NoError(t, err)

	s := result.Value.(*SEOResult)
	assert.True(t, s.Applied)
	assert.False(t, s.FromModel)
	assert.Equal(t, "Acme Plumbing", s.Meta.Title)
	assert.Equal(t, "Single-page plumbing site with a bold hero.", s.Meta.Description)

	// The CMS write still happened with the derived metadata.
	assert.NotNil(t, cms.seo["page-1"])
}

func TestSEO_DerivedDescriptionIsTruncated(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{"no json in this reply"}}
	h := &SEO{deps: deps}

	hc := seoContext()
	hc.Artifacts[pipeline.PhaseAnalysis] = &AnalysisResult{Summary: strings.Repeat("long summary ", 30)}

	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)

	s := result.Value.(*SEOResult)
	assert.LessOrEqual(t, len(s.Meta.Description), 160)
	assert.True(t, strings.HasSuffix(s.Meta.Description, "..."))
}

func TestSEO_CMSFailureIsFatal(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{`{"title": "T", "description": "D", "keywords": "K"}`}}
	cms := newFakeCMS()
	cms.seoErr = errors.New("403 forbidden")
	deps.CMS = cms
	h := &SEO{deps: deps}

	_, err := h.Execute(context.Background(), seoContext())
	require.Error(t, err)
	assert.True(t, pipeline.IsExternalService(err))
}

func TestReport_AggregatesMetrics(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{"The build finished cleanly with one corrected section."}}
	h := &Report{deps: deps}

	hc := testContext(pipeline.KindBuild)
	hc.Run.FixIteration = 1
	hc.Artifacts[pipeline.PhaseAnalysis] = &AnalysisResult{
		Sections: []collab.Section{{ID: "s1", Name: "Hero"}, {ID: "s2", Name: "Contact"}},
	}
	hc.Artifacts[pipeline.PhaseAssets] = &AssetsResult{Uploaded: 24, Failed: 1}
	hc.Artifacts[pipeline.PhaseVisualCompare] = &VisualResult{Overall: 88, Passed: true}
	hc.Artifacts[pipeline.PhaseFixLoop] = &FixResult{Action: FixActionCorrected}
	hc.Artifacts[pipeline.PhaseFunctionalQA] = &QAResult{LinksChecked: 12, BrokenLinks: 0, AuditScores: map[string]int{"performance": 91}}

	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)

	r := result.Value.(*ReportResult)
	assert.Equal(t, "The build finished cleanly with one corrected section.", r.Summary)
	assert.Equal(t, "1", r.Metrics["fix_iterations"])
	assert.Equal(t, "2", r.Metrics["sections"])
	assert.Equal(t, "24", r.Metrics["assets_uploaded"])
	assert.Equal(t, "88", r.Metrics["visual_score"])
	assert.Equal(t, "corrected", r.Metrics["fix_outcome"])
	assert.Equal(t, "12", r.Metrics["links_checked"])
	assert.Contains(t, r.Metrics["audit"], "performance=91")
}

func TestReport_SummaryFallsBackWhenModelFails(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{err: errors.New("model overloaded")}
	h := &Report{deps: deps}

	hc := testContext(pipeline.KindBuild)
	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Contains(t, result.Value.(*ReportResult).Summary, "Acme Plumbing")
}

func TestPublish_FlipsPageLive(t *testing.T) {
	deps := testDeps()
	cms := newFakeCMS()
	cms.pages["page-1"] = nil
	deps.CMS = cms
	h := &Publish{deps: deps}

	hc := testContext(pipeline.KindBuild)
	hc.Artifacts[pipeline.PhaseDeploy] = &DeployResult{PageID: "page-1", URL: "https://acme.example.com/home"}
	hc.Artifacts[pipeline.PhaseGeneration] = &GenerationResult{Markup: "<section>final</section>", Dialect: "html"}

	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)

	p := result.Value.(*PublishResult)
	assert.Equal(t, "page-1", p.PageID)
	assert.True(t, p.Live)
	assert.False(t, p.PublishedAt.IsZero())

	page := cms.pages["page-1"]
	require.NotNil(t, page)
	assert.True(t, page.Live)
	assert.Equal(t, "<section>final</section>", page.Markup)
}

func TestPublish_CMSFailureIsFatal(t *testing.T) {
	deps := testDeps()
	cms := newFakeCMS()
	cms.updateErr = errors.New("503 unavailable")
	deps.CMS = cms
	h := &Publish{deps: deps}

	hc := testContext(pipeline.KindBuild)
	hc.Artifacts[pipeline.PhaseDeploy] = &DeployResult{PageID: "page-1"}
	hc.Artifacts[pipeline.PhaseGeneration] = &GenerationResult{Markup: "m", Dialect: "html"}

	_, err := h.Execute(context.Background(), hc)
	require.Error(t, err)
	assert.True(t, pipeline.IsExternalService(err))
}
