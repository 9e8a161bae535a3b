package phases

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/pipelined/internal/collab"
	"github.com/fyrsmithlabs/pipelined/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutline_UsesModelSections(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{
		`{"sections": ["Why Pipes Fail", "Warning Signs", "When to Call", "Costs"]}`,
	}}
	h := &Outline{deps: deps}

	result, err := h.Execute(context.Background(), testContext(pipeline.KindContent))
	require.NoError(t, err)

	o := result.Value.(*OutlineResult)
	assert.True(t, o.FromModel)
	assert.Equal(t, []string{"Why Pipes Fail", "Warning Signs", "When to Call", "Costs"}, o.Sections)
}

func TestOutline_FallsBackToSkeleton(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{err: errors.New("model overloaded")}
	h := &Outline{deps: deps}

	result, err := h.Execute(context.Background(), testContext(pipeline.KindContent))
	require.NoError(t, err)

	o := result.Value.(*OutlineResult)
	assert.False(t, o.FromModel)
	assert.Equal(t, []string{"Introduction", "Background", "Main Points", "Conclusion"}, o.Sections)
}

func draftContext() *pipeline.HandlerContext {
	hc := testContext(pipeline.KindContent)
	hc.Artifacts[pipeline.PhaseOutline] = &OutlineResult{Sections: []string{"Intro", "Body"}}
	return hc
}

func TestDraft_ParsesEnvelope(t *testing.T) {
	deps := testDeps()
	ai := &fakeAI{responses: []string{`{"title": "Why Pipes Fail", "markup": "<section>body</section>"}`}}
	deps.AI = ai
	h := &Draft{deps: deps}

	result, err := h.Execute(context.Background(), draftContext())
	require.NoError(t, err)

	d := result.Value.(*DraftResult)
	assert.Equal(t, "Why Pipes Fail", d.Title)
	assert.Equal(t, "<section>body</section>", d.Markup)

	require.Len(t, ai.requests, 1)
	assert.Contains(t, ai.requests[0].User, "Intro")
	assert.Contains(t, ai.requests[0].User, "semantic HTML5")
}

func TestDraft_FallsBackToRawText(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{"plain prose draft with no envelope"}}
	h := &Draft{deps: deps}

	result, err := h.Execute(context.Background(), draftContext())
	require.NoError(t, err)

	d := result.Value.(*DraftResult)
	assert.Equal(t, "plain prose draft with no envelope", d.Markup)
	assert.Equal(t, "Acme Plumbing", d.Title)
}

func TestDraft_ModelFailureIsFatal(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{err: errors.New("model overloaded")}
	h := &Draft{deps: deps}

	_, err := h.Execute(context.Background(), draftContext())
	require.Error(t, err)
	assert.True(t, pipeline.IsExternalService(err))
}

func TestDraft_RequiresOutline(t *testing.T) {
	h := &Draft{deps: testDeps()}
	_, err := h.Execute(context.Background(), testContext(pipeline.KindContent))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required artifact from phase outline")
}

func TestContentSEO_StagesMetadataWithoutApplying(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{`{"title": "Why Pipes Fail", "description": "A guide.", "keywords": "pipes"}`}}
	cms := newFakeCMS()
	deps.CMS = cms
	h := &ContentSEO{deps: deps}

	hc := testContext(pipeline.KindContent)
	hc.Artifacts[pipeline.PhaseDraft] = &DraftResult{Title: "Why Pipes Fail", Markup: "<section>x</section>"}

	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)

	s := result.Value.(*SEOResult)
	assert.False(t, s.Applied)
	assert.Equal(t, "Why Pipes Fail", s.Meta.Title)
	assert.Empty(t, cms.seo)
}

func contentPublishContext() *pipeline.HandlerContext {
	hc := testContext(pipeline.KindContent)
	hc.Artifacts[pipeline.PhaseDraft] = &DraftResult{Title: "Why Pipes Fail", Markup: "<section>body</section>"}
	hc.Artifacts[pipeline.PhaseContentSEO] = &SEOResult{
		Meta: collab.SEOMetadata{Title: "Why Pipes Fail", Description: "A guide.", Keywords: "pipes"},
	}
	return hc
}

func TestContentPublish_CreatesLivePageAndAppliesSEO(t *testing.T) {
	deps := testDeps()
	cms := newFakeCMS()
	deps.CMS = cms
	h := &ContentPublish{deps: deps}

	result, err := h.Execute(context.Background(), contentPublishContext())
	require.NoError(t, err)

	p := result.Value.(*PublishResult)
	assert.True(t, p.Live)
	assert.Equal(t, "page-1", p.PageID)

	page := cms.pages["page-1"]
	require.NotNil(t, page)
	assert.True(t, page.Live)
	assert.Equal(t, "why-pipes-fail", page.Slug)

	seo := cms.seo["page-1"]
	require.NotNil(t, seo)
	assert.Equal(t, "A guide.", seo.Description)
}

func TestContentPublish_UpdatesExistingPage(t *testing.T) {
	deps := testDeps()
	cms := newFakeCMS()
	cms.pages["page-4"] = nil
	deps.CMS = cms
	h := &ContentPublish{deps: deps}

	hc := contentPublishContext()
	hc.Profile.PageID = "page-4"

	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.Equal(t, "page-4", result.Value.(*PublishResult).PageID)
	assert.Contains(t, cms.updatedPages, "page-4")
}

func TestContentReport_Summarizes(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{"Article published with four sections."}}
	h := &ContentReport{deps: deps}

	hc := testContext(pipeline.KindContent)
	hc.Artifacts[pipeline.PhaseOutline] = &OutlineResult{Sections: []string{"a", "b", "c", "d"}}
	hc.Artifacts[pipeline.PhaseDraft] = &DraftResult{Markup: "<section>body</section>"}
	hc.Artifacts[pipeline.PhaseContentPublish] = &PublishResult{PageID: "page-1", Live: true}

	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)

	r := result.Value.(*ReportResult)
	assert.Equal(t, "Article published with four sections.", r.Summary)
	assert.Equal(t, "4", r.Metrics["outline_sections"])
	assert.Equal(t, "page-1", r.Metrics["page_id"])
}
