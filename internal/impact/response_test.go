package impact

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAssemble_OmitsAbsentBlocks(t *testing.T) {
	g := buildGraph(t, [][2]string{{"a.X", "a.Y"}})

	resp, err := Assemble(g, Query{Seeds: []string{"X"}})
	require.NoError(t, err)
	assert.Nil(t, resp.TestPlan)
	assert.Nil(t, resp.Repo)
	assert.Equal(t, 2, resp.NodeCount())

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "graphs")
	assert.NotContains(t, decoded, "testPlan")
	assert.NotContains(t, decoded, "repo")
}

func TestAssemble_PassThroughBlocks(t *testing.T) {
	g := buildGraph(t, [][2]string{{"a.X", "a.Y"}})

	resp, err := Assemble(g, Query{
		Seeds:    []string{"X"},
		TestPlan: strPtr("run the order suite"),
		Repo:     strPtr("shop"),
	})
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"graphs": [{
			"nodes": [
				{"id": "a.X", "label": "X", "critical": false},
				{"id": "a.Y", "label": "Y", "critical": false}
			],
			"links": [
				{"source": "a.X", "target": "a.Y", "label": "depends", "critical": false}
			]
		}],
		"testPlan": {"title": "Test Plan", "testPlan": "run the order suite"},
		"repo": {"title": "Repo", "repo": "shop"}
	}`, string(raw))
}

func TestAssemble_EmptyStringsRenderNull(t *testing.T) {
	g := buildGraph(t, [][2]string{{"a.X", "a.Y"}})

	resp, err := Assemble(g, Query{Seeds: []string{"X"}, TestPlan: strPtr(""), Repo: strPtr("")})
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		TestPlan map[string]any `json:"testPlan"`
		Repo     map[string]any `json:"repo"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded.TestPlan, "testPlan")
	assert.Nil(t, decoded.TestPlan["testPlan"])
	assert.Equal(t, "Test Plan", decoded.TestPlan["title"])
	require.Contains(t, decoded.Repo, "repo")
	assert.Nil(t, decoded.Repo["repo"])
}

func TestAssemble_LeafSeedEncodesEmptyLinks(t *testing.T) {
	g := buildGraph(t, [][2]string{{"a.X", "a.Y"}})

	resp, err := Assemble(g, Query{Seeds: []string{"a.Y"}})
	require.NoError(t, err)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"graphs": [{
			"nodes": [{"id": "a.Y", "label": "Y", "critical": false}],
			"links": []
		}]
	}`, string(raw))
}

func TestAssemble_Errors(t *testing.T) {
	g := buildGraph(t, [][2]string{{"a.X", "a.Y"}})

	_, err := Assemble(g, Query{Seeds: []string{" "}, Repo: strPtr("shop")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Assemble(g, Query{Seeds: []string{"missing"}})
	assert.ErrorIs(t, err, ErrNotFound)
}
