package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/internal/catalog"
	"engram/internal/content"
	"engram/internal/unified"
	"engram/pkg/database"
	"engram/pkg/fetch/fetchtest"
	"engram/pkg/models"
)

func fixtures() *fetchtest.Static {
	return fetchtest.New().
		SetFile(catalog.StudyXPath, "../catalog/testdata/studyx.json").
		SetFile(catalog.DotNotesPath, "../catalog/testdata/dotnotes.json").
		SetFile(catalog.FifteenFourteenPath, "../catalog/testdata/fifteenfourteen.json").
		SetFile(content.ConsolidatedPath, "../content/testdata/consolidated.json")
}

func newService(t *testing.T, f *fetchtest.Static) *Service {
	t.Helper()
	s, err := New(Options{Database: database.MemoryConfig("app-" + uuid.NewString())}, f, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestServiceEndToEnd(t *testing.T) {
	s := newService(t, fixtures())
	ctx := context.Background()

	require.True(t, s.Ready(ctx))

	branches, err := s.Branches(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE", "ECE", "IT"}, branches)

	set := s.Materials(ctx, "CSE", "1st", "Applied Mathematics 1")
	assert.Len(t, set[models.CategoryNotes], 5)

	syl, ok := s.Syllabus(ctx, "CSE", "1st", "Applied Mathematics 1")
	require.True(t, ok)
	assert.Len(t, syl, 2)
	assert.Len(t, s.Videos(ctx, "CSE", "1st", "Applied Mathematics 1"), 1)

	m := s.Mapping("Programming in C", "CSE", "SEM1")
	assert.Equal(t, "PIC", m.Code)
}

func TestServiceSearch(t *testing.T) {
	s := newService(t, fixtures())

	res, err := s.Search(context.Background(), "applied", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)

	var names []string
	for _, it := range res.Items {
		names = append(names, it.Subject)
		assert.Equal(t, catalog.CommonBranch, it.Branch)
	}
	assert.Equal(t, []string{"APM1", "Applied Mathematics 1", "Applied Physics 1", "Applied Chemistry"}, names)
}

func TestServiceReadyWhenEverythingFails(t *testing.T) {
	down := errors.New("down")
	f := fetchtest.New().
		Fail(catalog.StudyXPath, down).
		Fail(catalog.DotNotesPath, down).
		Fail(catalog.FifteenFourteenPath, down)
	s := newService(t, f)
	ctx := context.Background()

	assert.False(t, s.Ready(ctx))
	_, err := s.Branches(ctx)
	assert.ErrorIs(t, err, unified.ErrAllSourcesFailed)
	_, err = s.Search(ctx, "x", 10, 0)
	assert.ErrorIs(t, err, unified.ErrAllSourcesFailed)
	assert.Zero(t, s.Materials(ctx, "CSE", "SEM1", "Applied Mathematics 1").Total())
}

func TestServiceClearCache(t *testing.T) {
	f := fixtures()
	s := newService(t, f)
	ctx := context.Background()

	cleared := 0
	s.OnClear(func() { cleared++ })

	_, err := s.Search(ctx, "ds", 0, 0)
	require.NoError(t, err)
	_, _ = s.Syllabus(ctx, "CSE", "SEM3", "Data Structures")
	assert.True(t, s.ContentStatus(ctx).Loaded)

	s.ClearCache()
	assert.Equal(t, 1, cleared)
	assert.False(t, s.ContentStatus(ctx).Loaded)

	_, err = s.Search(ctx, "ds", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls(catalog.StudyXPath))
	assert.Equal(t, 2, f.Calls(catalog.DotNotesPath))
}
