package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faseelanwar-cpu/interview-coach/internal/config"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

func TestFileStoreUsers(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.GetUser(ctx, "ada@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.ApproveUser(ctx, models.User{Email: " Ada@Example.com ", DisplayName: "Ada"}))
	u, err := s.GetUser(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.False(t, u.ApprovedAt.IsZero())

	assert.Error(t, s.ApproveUser(ctx, models.User{Email: "  "}))
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveReport(ctx, models.InterviewReport{ID: "r1", UserEmail: "ada@example.com", CreatedAt: time.Now()}))
	require.NoError(t, s.SaveProfile(ctx, "ada@example.com", models.CandidateProfile{FullName: " Ada ", Skills: []string{"Go", "Go", "SQL"}}))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	r, err := reopened.GetReport(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", r.UserEmail)

	p, err := reopened.GetProfile(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FullName)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
	assert.Equal(t, models.ProfileSchemaVersion, p.SchemaVersion)
	assert.False(t, p.UpdatedAt.IsZero())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreMigratesLegacyProfilesOnLoad(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
  "approvedUsers": {"ada@example.com": {"displayName": "Ada"}},
  "profiles": {
    "ada@example.com": {
      "name": "Ada Lovelace",
      "skills": "Go, SQL\nKubernetes",
      "experience": [{"role": "Engineer", "company": "Acme", "description": "Built things"}]
    }
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, dataFileName), []byte(legacy), 0o644))

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	p, err := s.GetProfile(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.FullName)
	assert.Equal(t, []string{"Go", "SQL", "Kubernetes"}, p.Skills)
	require.Len(t, p.Experience, 1)
	assert.Equal(t, "Engineer", p.Experience[0].Title)
	assert.NotEmpty(t, p.Experience[0].ID)

	u, err := s.GetUser(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	raw, err := os.ReadFile(filepath.Join(dir, dataFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"schemaVersion": 2`)
}

func TestFileStoreListsNewestFirstPerUser(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveCVAnalysis(ctx, models.CVAnalysis{ID: "a1", UserEmail: "ada@example.com", CreatedAt: base}))
	require.NoError(t, s.SaveCVAnalysis(ctx, models.CVAnalysis{ID: "a2", UserEmail: "ada@example.com", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.SaveCVAnalysis(ctx, models.CVAnalysis{ID: "b1", UserEmail: "bob@example.com", CreatedAt: base}))

	list, err := s.ListCVAnalyses(ctx, "Ada@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a2", list[0].ID)
	assert.Equal(t, "a1", list[1].ID)

	require.NoError(t, s.SaveGeneratedCV(ctx, models.GeneratedCV{ID: "g1", UserEmail: "ada@example.com", CreatedAt: base}))
	cvs, err := s.ListGeneratedCVs(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Len(t, cvs, 1)

	reports, err := s.ListReports(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestFileStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.GetReport(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.GetCVAnalysis(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetGeneratedCV(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetProfile(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.SaveReport(ctx, models.InterviewReport{}))
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := &config.Config{StoreBackend: config.StoreFile, DataDir: t.TempDir()}
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, s.Close())

	cfg.StoreBackend = "cassandra"
	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}
