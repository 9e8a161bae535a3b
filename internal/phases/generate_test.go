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

func generationContext() *pipeline.HandlerContext {
	hc := testContext(pipeline.KindBuild)
	hc.Artifacts[pipeline.PhaseAnalysis] = &AnalysisResult{
		Sections: []collab.Section{{ID: "s1", Name: "Hero", Text: "Welcome"}},
		Colors:   []string{"#112233"},
		Summary:  "Single-page plumbing site with a bold hero.",
	}
	hc.Artifacts[pipeline.PhaseClassification] = &ClassificationResult{
		Sections: []SectionClass{{ID: "s1", Type: "hero", Complexity: "standard"}},
	}
	return hc
}

func TestGeneration_ParsesEnvelope(t *testing.T) {
	deps := testDeps()
	ai := &fakeAI{responses: []string{`{"markup": "<section>hero</section>", "sections": ["hero"]}`}}
	deps.AI = ai
	h := &Generation{deps: deps}

	result, err := h.Execute(context.Background(), generationContext())
	require.NoError(t, err)

	gen := result.Value.(*GenerationResult)
	assert.Equal(t, "<section>hero</section>", gen.Markup)
	assert.Equal(t, []string{"hero"}, gen.Sections)
	assert.Equal(t, "html", gen.Dialect)
	assert.False(t, gen.Corrected)

	// The dialect instructions ride in the system prompt.
	require.Len(t, ai.requests, 1)
	assert.Contains(t, ai.requests[0].System, "semantic HTML5")
	assert.Contains(t, ai.requests[0].User, "Acme Plumbing")
}

func TestGeneration_FallsBackToRawText(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{"<section>served as plain text</section>"}}
	h := &Generation{deps: deps}

	result, err := h.Execute(context.Background(), generationContext())
	require.NoError(t, err)
	gen := result.Value.(*GenerationResult)
	assert.Equal(t, "<section>served as plain text</section>", gen.Markup)
}

func TestGeneration_ModelFailureIsFatal(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{err: errors.New("model overloaded")}
	h := &Generation{deps: deps}

	_, err := h.Execute(context.Background(), generationContext())
	require.Error(t, err)
	assert.True(t, pipeline.IsExternalService(err))
}

func TestGeneration_UnknownDialect(t *testing.T) {
	h := &Generation{deps: testDeps()}

	hc := generationContext()
	hc.Profile.Dialect = "wordstar"
	_, err := h.Execute(context.Background(), hc)
	require.Error(t, err)
	assert.True(t, pipeline.IsConfiguration(err))
}

func TestGeneration_RequiresUpstreamArtifacts(t *testing.T) {
	h := &Generation{deps: testDeps()}

	_, err := h.Execute(context.Background(), testContext(pipeline.KindBuild))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required artifact")
}
