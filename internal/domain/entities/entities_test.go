package entities

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetIndex_Lookup(t *testing.T) {
	idx := NewDatasetIndex([]Dataset{
		{Key: "alpha", Path: "alpha_data"},
		{Key: "beta", Path: "beta_data"},
	})

	d, ok := idx.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha_data", d.Path)

	_, ok = idx.Lookup("gamma")
	assert.False(t, ok)
	assert.Equal(t, 2, idx.Len())
}

func TestDatasetIndex_DuplicateKeyLastWins(t *testing.T) {
	idx := NewDatasetIndex([]Dataset{
		{Key: "alpha", Path: "old"},
		{Key: "beta", Path: "b"},
		{Key: "alpha", Path: "new"},
	})

	d, ok := idx.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "new", d.Path)

	assert.Equal(t, []Dataset{
		{Key: "alpha", Path: "new"},
		{Key: "beta", Path: "b"},
	}, idx.List())
}

func TestDatasetIndex_SkipsEmptyKeys(t *testing.T) {
	idx := NewDatasetIndex([]Dataset{{Key: "", Path: "orphan"}})

	_, ok := idx.Lookup("")
	assert.False(t, ok)
	assert.Empty(t, idx.List())
}

func TestDatasetIndex_Empty(t *testing.T) {
	idx := NewDatasetIndex(nil)
	assert.Equal(t, 0, idx.Len())
	assert.NotNil(t, idx.List())
}

func TestQueryRequest_Normalize(t *testing.T) {
	req := QueryRequest{Question: "  What is X?\n", DatasetKey: "alpha"}.Normalize()

	assert.Equal(t, "What is X?", req.Question)
	assert.Equal(t, DefaultMethod, req.Method)

	req = QueryRequest{Question: "q", Method: "local"}.Normalize()
	assert.Equal(t, "local", req.Method)

	req = QueryRequest{Question: "q", Method: " \t "}.Normalize()
	assert.Equal(t, DefaultMethod, req.Method)

	req = QueryRequest{Question: "q", Method: " drift\n"}.Normalize()
	assert.Equal(t, "drift", req.Method)
}

func TestFailureAnswer_TruncatesLongStderr(t *testing.T) {
	stderr := strings.Repeat("e", 600)

	got := FailureAnswer(stderr)

	assert.Equal(t, "GraphRAG query failed:\n"+stderr[:500]+"...", got)
}

func TestFailureAnswer_AlwaysAppendsEllipsis(t *testing.T) {
	assert.Equal(t, "GraphRAG query failed:\nboom...", FailureAnswer("boom"))
	assert.Equal(t, "GraphRAG query failed:\n...", FailureAnswer(""))
}

func TestFailureAnswer_CountsCharactersNotBytes(t *testing.T) {
	stderr := strings.Repeat("é", 501)

	got := FailureAnswer(stderr)

	assert.Equal(t, "GraphRAG query failed:\n"+strings.Repeat("é", 500)+"...", got)
}

func TestExternalProcessError_As(t *testing.T) {
	var err error = &ExternalProcessError{ExitCode: 2, Stderr: "bad root"}
	wrapped := errors.Join(errors.New("running query"), err)

	var perr *ExternalProcessError
	require.True(t, errors.As(wrapped, &perr))
	assert.Equal(t, 2, perr.ExitCode)
	assert.Contains(t, perr.Error(), "code 2")
}
