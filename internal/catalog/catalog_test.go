package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/pkg/fetch/fetchtest"
	"engram/pkg/models"
)

func fixtures(t *testing.T) *fetchtest.Static {
	t.Helper()
	return fetchtest.New().
		SetFile(StudyXPath, "testdata/studyx.json").
		SetFile(DotNotesPath, "testdata/dotnotes.json").
		SetFile(FifteenFourteenPath, "testdata/fifteenfourteen.json")
}

func TestNormalizeSemester(t *testing.T) {
	cases := map[string]string{
		"1st":    "SEM1",
		"2nd":    "SEM2",
		"8th":    "SEM8",
		"sem-1":  "SEM1",
		"Sem 3":  "SEM3",
		"SEM5":   "SEM5",
		"sem05":  "SEM5",
		" misc ": "MISC",
		"":       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSemester(in), "input %q", in)
	}
}

func TestNormalizeSemesterRoundTrip(t *testing.T) {
	for _, s := range []string{"1st", "sem-4", "SEM7", "third"} {
		once := NormalizeSemester(s)
		assert.Equal(t, once, NormalizeSemester(once))
	}
}

func TestSortSemesters(t *testing.T) {
	sems := []string{"SEM10", "SEM2", "X", "SEM1"}
	SortSemesters(sems)
	assert.Equal(t, []string{"SEM1", "SEM2", "SEM10", "X"}, sems)
}

func TestStudyXCommonBucket(t *testing.T) {
	ctx := context.Background()
	c := NewStudyX(fixtures(t), Options{})

	branches, err := c.Branches(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE", "ECE"}, branches)

	sems, err := c.Semesters(ctx, "cse")
	require.NoError(t, err)
	assert.Equal(t, []string{"SEM1", "SEM2", "SEM3"}, sems)

	// SEM1 comes from the common bucket whatever the branch
	for _, branch := range []string{"CSE", "ece"} {
		subjects, err := c.Subjects(ctx, branch, "1st")
		require.NoError(t, err)
		assert.Equal(t, []string{"Applied Mathematics 1", "Applied Physics 1", "Programming in C"}, subjects)
	}

	subjects, err := c.Subjects(ctx, "CSE", "sem-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"Data Structures", "Theory of Computation"}, subjects)

	subjects, err = c.Subjects(ctx, "MECH", "SEM3")
	require.NoError(t, err)
	assert.Empty(t, subjects)

	sems, err = c.Semesters(ctx, "MECH")
	require.NoError(t, err)
	assert.Empty(t, sems)
}

func TestStudyXMaterials(t *testing.T) {
	ctx := context.Background()
	c := NewStudyX(fixtures(t), Options{})

	set, err := c.Materials(ctx, "CSE", "SEM1", "applied mathematics 1")
	require.NoError(t, err)
	for _, cat := range models.Categories {
		assert.Contains(t, set, cat)
	}
	assert.Len(t, set[models.CategoryNotes], 2)
	assert.Len(t, set[models.CategoryPYQs], 1)
	assert.Len(t, set[models.CategoryAkash], 1)
	require.Len(t, set[models.CategoryBooks], 1)
	assert.Equal(t, "sxm1b1", set[models.CategoryBooks][0].ID, "id extracted from the download url")
	assert.Equal(t, 7, set.Total(), "unknown folders are skipped")

	n := set[models.CategoryNotes][0]
	assert.Equal(t, "https://drive.google.com/file/d/sxm1n2/preview", n.PreviewURL)
	assert.Equal(t, "https://drive.google.com/file/d/sxm1n2/view", n.WebViewURL)

	set, err = c.Materials(ctx, "CSE", "SEM1", "Applied Physics 1")
	require.NoError(t, err)
	assert.Len(t, set[models.CategoryNotes], 1, "materials without a download url are dropped")

	set, err = c.Materials(ctx, "CSE", "SEM1", "Applied Physics")
	require.NoError(t, err)
	assert.Zero(t, set.Total(), "no fuzzy matching at the catalog layer")
}

func TestDotNotesMaterials(t *testing.T) {
	ctx := context.Background()
	c := NewDotNotes(fixtures(t), Options{})

	sems, err := c.Semesters(ctx, "CSE")
	require.NoError(t, err)
	assert.Equal(t, []string{"SEM1", "SEM3"}, sems)

	subjects, err := c.Subjects(ctx, "cse", "SEM1")
	require.NoError(t, err)
	assert.Equal(t, []string{"APM1", "EVS", "PIC"}, subjects)

	set, err := c.Materials(ctx, "CSE", "1st", "evs")
	require.NoError(t, err)
	require.Len(t, set[models.CategoryNotes], 1)
	m := set[models.CategoryNotes][0]
	assert.Equal(t, "https://drive.google.com/file/d/dnevsn1/view", m.PreviewURL)
	assert.Equal(t, m.PreviewURL, m.WebViewURL)
}

func TestFifteenFourteenCommonServesEveryBranch(t *testing.T) {
	ctx := context.Background()
	c := NewFifteenFourteen(fixtures(t), Options{})

	for _, branch := range []string{"CSE", "MECH"} {
		subjects, err := c.Subjects(ctx, branch, "SEM1")
		require.NoError(t, err)
		assert.Equal(t, []string{"APM1", "EG"}, subjects)
	}

	set, err := c.Materials(ctx, "MECH", "SEM1", "apm1")
	require.NoError(t, err)
	require.Len(t, set[models.CategoryNotes], 2)
	assert.Equal(t, "Notes 1", set[models.CategoryNotes][0].Name)
	assert.Equal(t, "Unit Notes 2", set[models.CategoryNotes][1].Name)
	assert.Equal(t, "https://fifteenfourteen.example/apm1/notes/1", set[models.CategoryNotes][0].WebViewURL)
	assert.Equal(t, "https://drive.google.com/file/d/ffm1n1/preview", set[models.CategoryNotes][0].PreviewURL)
	// notes 2, pyqs 1, lab 1, syllabus 1, akash 1; viva is not a category
	assert.Equal(t, 6, set.Total())
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	f := fixtures(t)

	refs, err := NewDotNotes(f, Options{}).Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 5)
	assert.Equal(t, models.SubjectRef{Branch: "CSE", Semester: "SEM1", Subject: "APM1", Name: "APM1", Source: models.SourceDotNotes}, refs[0])

	refs, err = NewStudyX(f, Options{}).Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, 7)
	assert.Equal(t, CommonBranch, refs[0].Branch)

	refs, err = NewFifteenFourteen(f, Options{}).Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "Applied Mathematics-I", refs[0].Name)
}

func TestConcurrentLoadsShareOneFetch(t *testing.T) {
	f := fixtures(t)
	f.Gate = make(chan struct{})
	c := NewDotNotes(f, Options{})

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Load(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return f.Calls(DotNotesPath) == 1 }, time.Second, time.Millisecond)
	close(f.Gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.Calls(DotNotesPath))

	_, err := c.Subjects(context.Background(), "CSE", "SEM1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Calls(DotNotesPath), "served from memory afterwards")
}

func TestLoadFailureIsNotCached(t *testing.T) {
	f := fetchtest.New().Fail(StudyXPath, errors.New("connection refused"))
	c := NewStudyX(f, Options{})

	err := c.Load(context.Background())
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, models.SourceStudyX, le.Source)
	assert.Equal(t, StudyXPath, le.URL)

	f.SetFile(StudyXPath, "testdata/studyx.json")
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 2, f.Calls(StudyXPath))
}

func TestInvalidDocument(t *testing.T) {
	cases := map[string]string{
		"not json":         `<html>`,
		"wrong type":       `{"branches": []}`,
		"missing common":   `{"branches": {}}`,
		"missing branches": `{"materials": {"common": {}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewStudyX(fetchtest.New().Set(StudyXPath, []byte(body)), Options{})
			err := c.Load(context.Background())
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}

	c := NewDotNotes(fetchtest.New().Set(DotNotesPath, []byte(`{"source":"x"}`)), Options{})
	assert.ErrorIs(t, c.Load(context.Background()), ErrInvalidDocument)
}

func TestClearCacheRefetches(t *testing.T) {
	f := fixtures(t)
	c := NewFifteenFourteen(f, Options{})

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 1, f.Calls(FifteenFourteenPath))

	c.ClearCache()
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 2, f.Calls(FifteenFourteenPath))
}

func TestCallerCancellationDoesNotAbortSharedFetch(t *testing.T) {
	f := fixtures(t)
	f.Gate = make(chan struct{})
	c := NewStudyX(f, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- c.Load(ctx) }()
	require.Eventually(t, func() bool { return f.Calls(StudyXPath) == 1 }, time.Second, time.Millisecond)

	cancel()
	err := <-first
	assert.ErrorIs(t, err, context.Canceled)

	second := make(chan error, 1)
	go func() { second <- c.Load(context.Background()) }()
	close(f.Gate)

	require.NoError(t, <-second)
	assert.Equal(t, 1, f.Calls(StudyXPath))
}

func TestFetchTimeoutIsLoadError(t *testing.T) {
	f := fixtures(t)
	f.Gate = make(chan struct{})
	defer close(f.Gate)

	c := NewDotNotes(f, Options{Timeout: 20 * time.Millisecond})
	err := c.Load(context.Background())

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDotNotesDecodesSubjectCodes(t *testing.T) {
	body := []byte(`{"branches":{"IT":{"SEM4":{
		"DBMS":{"notes":[{"id":"db1","name":"DBMS Unit 1.pdf","downloadUrl":"https://drive.google.com/uc?id=db1"}]},
		"OS":{"pyqs":[{"downloadUrl":"https://drive.google.com/uc?export=download&id=os2024"}]}
	}}}}`)
	c := NewDotNotes(fetchtest.New().Set(DotNotesPath, body), Options{})
	ctx := context.Background()

	subjects, err := c.Subjects(ctx, "it", "4th")
	require.NoError(t, err)
	assert.Equal(t, []string{"DBMS", "OS"}, subjects)

	set, err := c.Materials(ctx, "IT", "SEM4", "os")
	require.NoError(t, err)
	require.Len(t, set[models.CategoryPYQs], 1)
	assert.Equal(t, "os2024", set[models.CategoryPYQs][0].ID)
	assert.Empty(t, set[models.CategoryNotes])

	refs, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, models.SubjectRef{Branch: "IT", Semester: "SEM4", Subject: "DBMS", Name: "DBMS", Source: models.SourceDotNotes}, refs[0])
}

func TestClearDuringLoadDropsStaleDocument(t *testing.T) {
	f := fixtures(t)
	f.Gate = make(chan struct{})
	c := NewStudyX(f, Options{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Load(ctx) }()
	require.Eventually(t, func() bool { return f.Calls(StudyXPath) == 1 }, time.Second, time.Millisecond)

	c.ClearCache()
	close(f.Gate)
	require.NoError(t, <-done, "the waiting caller still gets its document")
	assert.False(t, c.doc.Loaded(), "a load started before the clear is not kept")

	require.NoError(t, c.Load(ctx))
	assert.Equal(t, 2, f.Calls(StudyXPath))
	assert.True(t, c.doc.Loaded())
}
