package cmdutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/cmdutil"
	"github.com/chirino/agent-memory/internal/model"
)

func TestParseScope(t *testing.T) {
	scope, err := cmdutil.ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, model.ScopeProject, scope)

	scope, err = cmdutil.ParseScope("global")
	require.NoError(t, err)
	assert.Equal(t, model.ScopeGlobal, scope)

	_, err = cmdutil.ParseScope("nonsense")
	assert.Error(t, err)
}

func TestParseCategory(t *testing.T) {
	cat, err := cmdutil.ParseCategory("")
	require.NoError(t, err)
	assert.Nil(t, cat)

	cat, err = cmdutil.ParseCategory("decision")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, model.CategoryDecision, *cat)

	_, err = cmdutil.ParseCategory("nonsense")
	assert.Error(t, err)
}
