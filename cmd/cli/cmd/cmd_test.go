package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"engram/internal/app"
	"engram/internal/server"
	"engram/pkg/database"
	"engram/pkg/fetch"
	"engram/pkg/models"
	"engram/pkg/utils"
)

const contentDir = "../../../data"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBranchesText(t *testing.T) {
	out, err := run(t, "--content", contentDir, "branches")
	require.NoError(t, err)
	assert.Equal(t, "CSE\nECE\nIT\n", out)
}

func TestSubjectsJSON(t *testing.T) {
	out, err := run(t, "--content", contentDir, "--json", "subjects", "cse", "1st")
	require.NoError(t, err)

	var items []string
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.Contains(t, items, "Applied Mathematics 1")
}

func TestMaterialsCategoryFilter(t *testing.T) {
	out, err := run(t, "--content", contentDir, "--json", "materials", "CSE", "SEM1", "Applied Mathematics 1", "--category", "books")
	require.NoError(t, err)

	var set models.MaterialSet
	require.NoError(t, json.Unmarshal([]byte(out), &set))
	assert.Len(t, set, 1)
	assert.Len(t, set[models.CategoryBooks], 2)

	_, err = run(t, "--content", contentDir, "materials", "CSE", "SEM1", "X", "--category", "comics")
	assert.ErrorContains(t, err, "unknown category")
}

func TestMaterialsText(t *testing.T) {
	out, err := run(t, "--content", contentDir, "materials", "CSE", "SEM1", "Applied Mathematics 1")
	require.NoError(t, err)
	assert.Contains(t, out, "Notes (5)")
	assert.Contains(t, out, "[DotNotes]")
}

func TestSyllabusAndVideos(t *testing.T) {
	out, err := run(t, "--content", contentDir, "syllabus", "CSE", "SEM1", "Applied Mathematics 1")
	require.NoError(t, err)
	assert.Equal(t, "Unit 1: Differential calculus\nUnit 2: Matrices and determinants\n", out)

	_, err = run(t, "--content", contentDir, "syllabus", "CSE", "SEM1", "EVS")
	assert.Error(t, err)

	out, err = run(t, "--content", contentDir, "videos", "CSE", "SEM1", "Applied Mathematics 1")
	require.NoError(t, err)
	assert.Contains(t, out, "Calculus one shot by Gate Smashers")
}

func TestMapAndSearch(t *testing.T) {
	out, err := run(t, "--content", contentDir, "map", "Programming", "in", "C")
	require.NoError(t, err)
	assert.Equal(t, "PIC direct 1.00\n", out)

	out, err = run(t, "--content", contentDir, "map", "Artificial", "Zoology")
	require.NoError(t, err)
	assert.Equal(t, "no match (suggestion AZ)\n", out)

	out, err = run(t, "--content", contentDir, "search", "applied", "--limit", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "1 of 4\n"), out)
}

func TestUnreachableContent(t *testing.T) {
	_, err := run(t, "--content", filepath.Join(t.TempDir(), "nothing"), "branches")
	assert.Error(t, err)
}

func TestAdminLoginAndClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, err := app.New(app.Options{Database: database.MemoryConfig("cli-admin-" + uuid.NewString())}, fetch.Dir{Root: contentDir}, nil)
	require.NoError(t, err)
	defer svc.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{
		Service: svc,
		Auth: utils.AuthConfig{
			AdminPasswordHash: string(hash),
			JWTSecret:         "cli-test",
			JWTIssuer:         "engram",
			JWTDuration:       time.Hour,
		},
	}))
	defer srv.Close()

	tokenPath := filepath.Join(t.TempDir(), "token.json")

	_, err = run(t, "admin", "--api", srv.URL, "--token", tokenPath, "clear-cache")
	assert.ErrorContains(t, err, "please login")

	_, err = run(t, "admin", "--api", srv.URL, "--token", tokenPath, "login", "--password", "wrong")
	assert.ErrorContains(t, err, "401")

	out, err := run(t, "admin", "--api", srv.URL, "--token", tokenPath, "login", "--password", "open-sesame")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in until")

	cleared := make(chan struct{}, 1)
	svc.OnClear(func() { cleared <- struct{}{} })

	out, err = run(t, "admin", "--api", srv.URL, "--token", tokenPath, "clear-cache")
	require.NoError(t, err)
	assert.Equal(t, "caches cleared\n", out)
	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("cache was not cleared")
	}

	_, err = run(t, "admin", "--token", tokenPath, "logout")
	require.NoError(t, err)
	_, err = readToken(tokenPath)
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://api.example:8443/base", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example:8443/ws", u)

	u, err = websocketURL(defaultAPI, "/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)
}
