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

func classifyContext(sections []collab.Section) *pipeline.HandlerContext {
	hc := testContext(pipeline.KindBuild)
	hc.Artifacts[pipeline.PhaseAnalysis] = &AnalysisResult{Sections: sections}
	return hc
}

func TestClassification_UsesModelTags(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{
		`[{"id": "s1", "type": "hero", "complexity": "complex"}, {"id": "s2", "type": "contact", "complexity": "simple"}]`,
	}}
	h := &Classification{deps: deps}

	hc := classifyContext([]collab.Section{
		{ID: "s1", Name: "Hero"},
		{ID: "s2", Name: "Contact"},
	})
	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)

	c := result.Value.(*ClassificationResult)
	assert.True(t, c.FromModel)
	require.Len(t, c.Sections, 2)
	assert.Equal(t, SectionClass{ID: "s1", Type: "hero", Complexity: "complex"}, c.Sections[0])
	assert.Equal(t, SectionClass{ID: "s2", Type: "contact", Complexity: "simple"}, c.Sections[1])
}

func TestClassification_FillsDefaultsForSkippedSections(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{`[{"id": "s1", "type": "hero", "complexity": "standard"}]`}}
	h := &Classification{deps: deps}

	hc := classifyContext([]collab.Section{
		{ID: "s1", Name: "Hero"},
		{ID: "s2", Name: "Body", Text: strings.Repeat("x", 700)},
	})
	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)

	c := result.Value.(*ClassificationResult)
	require.Len(t, c.Sections, 2)
	assert.Equal(t, "hero", c.Sections[0].Type)
	// Skipped section gets the deterministic default.
	assert.Equal(t, "content", c.Sections[1].Type)
	assert.Equal(t, "complex", c.Sections[1].Complexity)
}

func TestClassification_ModelFailureFallsBack(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{err: errors.New("model overloaded")}
	h := &Classification{deps: deps}

	hc := classifyContext([]collab.Section{
		{ID: "s1", Name: "Hero", Text: "Welcome"},
		{ID: "s2", Name: "Body", Text: strings.Repeat("copy ", 200)},
		{ID: "s3", Name: "Badge"},
	})
	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)

	c := result.Value.(*ClassificationResult)
	assert.False(t, c.FromModel)
	require.Len(t, c.Sections, 3)
	assert.Equal(t, "hero", c.Sections[0].Type)
	assert.Equal(t, "simple", c.Sections[0].Complexity)
	assert.Equal(t, "complex", c.Sections[1].Complexity)
	assert.Equal(t, "simple", c.Sections[2].Complexity)
}

func TestClassification_UnparseableOutputFallsBack(t *testing.T) {
	deps := testDeps()
	deps.AI = &fakeAI{responses: []string{"these sections look like a standard marketing site"}}
	h := &Classification{deps: deps}

	hc := classifyContext([]collab.Section{{ID: "s1", Name: "Hero"}})
	result, err := h.Execute(context.Background(), hc)
	require.NoError(t, err)
	assert.False(t, result.Value.(*ClassificationResult).FromModel)
}
