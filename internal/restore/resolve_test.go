package restore

import (
	"testing"

	"github.com/aelpxy/dockup/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_LatestByDefault(t *testing.T) {
	inv := testInventory()

	sel, err := Resolve(inv, Request{Project: "blog", Repo: true})
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Record.Timestamp.Day())
	assert.True(t, sel.Repo)
	assert.Empty(t, sel.Volumes)

	sel, err = Resolve(inv, Request{Project: "blog", Version: "latest", Volumes: []string{"cache"}})
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Record.Timestamp.Day())
	require.Len(t, sel.Volumes, 1)
}

func TestResolve_ExplicitVersion(t *testing.T) {
	inv := testInventory()
	older := inv.Backups("blog")[1]

	sel, err := Resolve(inv, Request{
		Project: "blog",
		Version: constants.FormatTimestamp(older.Timestamp),
		Volumes: []string{"data", "./data", "cache"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sel.Record.Timestamp.Day())
	require.Len(t, sel.Volumes, 2)
	assert.Equal(t, "./data", sel.Volumes[0].Name)
	assert.Equal(t, "cache", sel.Volumes[1].Name)
}

func TestResolve_All(t *testing.T) {
	sel, err := Resolve(testInventory(), Request{Project: "wiki", All: true})
	require.NoError(t, err)
	assert.True(t, sel.Repo)
	assert.Len(t, sel.Volumes, 4)
}

func TestResolve_Errors(t *testing.T) {
	inv := testInventory()

	_, err := Resolve(inv, Request{})
	assert.ErrorContains(t, err, "project is required")

	_, err = Resolve(inv, Request{Project: "ghost", Repo: true})
	assert.ErrorContains(t, err, "no backups found")

	_, err = Resolve(inv, Request{Project: "blog", Version: "2000_01_01_000000", Repo: true})
	assert.ErrorContains(t, err, "not found")

	_, err = Resolve(inv, Request{Project: "blog", Volumes: []string{"nope"}})
	assert.ErrorContains(t, err, "not part of backup")

	_, err = Resolve(inv, Request{Project: "blog"})
	assert.ErrorContains(t, err, "nothing selected")
}
