package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSize_Bytes(t *testing.T) {
	cases := []struct {
		size Size
		want int64
	}{
		{SizeOf(512), 512},
		{Size{Amount: 12, Unit: UnitKB}, 12 * 1024},
		{Size{Amount: 3.5, Unit: UnitMB}, int64(3.5 * 1024 * 1024)},
		{Size{Amount: 1, Unit: UnitGB}, 1 << 30},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.size.Bytes(), tc.size.Unit.String())
	}
}

func TestSize_Unknown(t *testing.T) {
	assert.False(t, UnknownSize.Known())
	assert.Equal(t, int64(0), UnknownSize.Bytes())
	assert.Equal(t, "-", UnknownSize.String())
	assert.Equal(t, "1.0 KiB", SizeOf(1024).String())
}

func TestFailedOutcomeUsesSentinels(t *testing.T) {
	out := Failed("REPO", ItemKindRepo, errors.New("tar exited 2"))
	assert.False(t, out.OK())
	assert.Equal(t, UnknownSize, out.Size)
	assert.Equal(t, UnknownDuration, out.Duration)
	assert.Equal(t, "-", out.DurationString())
	assert.Equal(t, "failed", out.Status())
}

func TestTotals_OnlySuccessfulItemsCount(t *testing.T) {
	app := AppSummary{Name: "blog"}
	app.Record(Succeeded("./data", ItemKindBind, SizeOf(2048), 2*time.Second))
	app.Record(Failed("cache", ItemKindNamed, errors.New("boom")))

	totals := app.Totals()
	assert.Equal(t, 2, totals.Items)
	assert.Equal(t, 1, totals.Succeeded)
	assert.Equal(t, 1, totals.Failed)
	assert.Equal(t, int64(2048), totals.Bytes)
	assert.Equal(t, 2*time.Second, totals.Duration)
	assert.False(t, app.OK())

	run := RunSummary{}
	run.Add(app)
	run.Add(AppSummary{Name: "shop", Items: []ItemOutcome{
		Succeeded(RepoItemName, ItemKindRepo, Size{Amount: 1, Unit: UnitMB}, time.Second),
	}})

	all := run.Totals()
	assert.Equal(t, 3, all.Items)
	assert.Equal(t, 2, all.Succeeded)
	assert.Equal(t, int64(2048+1<<20), all.Bytes)
	assert.Equal(t, 3*time.Second, all.Duration)
	assert.False(t, run.OK())
}

func TestAppSummary_SetupErrorIsNotOK(t *testing.T) {
	app := AppSummary{Name: "blog", Err: errors.New("mkdir failed")}
	assert.False(t, app.OK())
	assert.Equal(t, 0, app.Totals().Items)
}
