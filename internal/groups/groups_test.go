package groups_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirino/agent-memory/internal/config"
	"github.com/chirino/agent-memory/internal/groups"
)

func newTestRegistry(t *testing.T) *groups.Registry {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()
	return groups.New(&cfg)
}

func TestCreateIsUnique(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create("backend")
	require.NoError(t, err)

	_, err = r.Create("backend")
	assert.Error(t, err)
}

func TestAddAndRemoveProject(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create("backend")
	require.NoError(t, err)

	g, err := r.AddProject("backend", "/tmp/svc-a")
	require.NoError(t, err)
	assert.Len(t, g.Projects, 1)

	// Adding the same project twice is a no-op.
	g, err = r.AddProject("backend", "/tmp/svc-a")
	require.NoError(t, err)
	assert.Len(t, g.Projects, 1)

	g, err = r.RemoveProject("backend", "/tmp/svc-a")
	require.NoError(t, err)
	assert.Empty(t, g.Projects)
}

func TestGetSiblingProjects(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create("backend")
	require.NoError(t, err)
	_, err = r.AddProject("backend", "/tmp/svc-a")
	require.NoError(t, err)
	_, err = r.AddProject("backend", "/tmp/svc-b")
	require.NoError(t, err)

	siblings, err := r.GetSiblingProjects("/tmp/svc-a")
	require.NoError(t, err)
	require.Len(t, siblings, 1)
	assert.Contains(t, siblings[0], "svc-b")
}

func TestPersistenceAcrossInstances(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasePath = t.TempDir()

	r1 := groups.New(&cfg)
	_, err := r1.Create("frontend")
	require.NoError(t, err)

	r2 := groups.New(&cfg)
	g, err := r2.Get("frontend")
	require.NoError(t, err)
	require.NotNil(t, g)
}
