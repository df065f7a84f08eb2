// Package store persists users, profiles, reports and CV artifacts.
package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/faseelanwar-cpu/interview-coach/internal/config"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("not found")

// Collection names shared by every backend
const (
	CollectionApprovedUsers    = "approvedUsers"
	CollectionProfiles         = "profiles"
	CollectionInterviewReports = "interviewReports"
	CollectionCVAnalyses       = "cvAnalyses"
	CollectionGeneratedCVs     = "generatedCVs"
)

// Store is the document database as the application sees it. Profiles are
// always returned in the current schema version.
type Store interface {
	GetUser(ctx context.Context, email string) (models.User, error)
	ApproveUser(ctx context.Context, user models.User) error

	GetProfile(ctx context.Context, email string) (models.CandidateProfile, error)
	SaveProfile(ctx context.Context, email string, p models.CandidateProfile) error

	SaveReport(ctx context.Context, r models.InterviewReport) error
	GetReport(ctx context.Context, id string) (models.InterviewReport, error)
	ListReports(ctx context.Context, email string) ([]models.InterviewReport, error)

	SaveCVAnalysis(ctx context.Context, a models.CVAnalysis) error
	GetCVAnalysis(ctx context.Context, id string) (models.CVAnalysis, error)
	ListCVAnalyses(ctx context.Context, email string) ([]models.CVAnalysis, error)

	SaveGeneratedCV(ctx context.Context, cv models.GeneratedCV) error
	GetGeneratedCV(ctx context.Context, id string) (models.GeneratedCV, error)
	ListGeneratedCVs(ctx context.Context, email string) ([]models.GeneratedCV, error)

	Close() error
}

// Open creates the backend selected in the configuration
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		return NewFirestoreStore(ctx, FirestoreOptions{
			ProjectID:       cfg.GoogleCloudProject,
			Database:        cfg.FirestoreDatabase,
			CredentialsFile: cfg.GoogleCredentialsPath,
		})
	case config.StoreFile, "":
		return NewFileStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// NormalizeEmail is the key form of an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newestFirst[T any](items []T, createdAt func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(createdAt(b).UnixNano(), createdAt(a).UnixNano())
	})
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s id is required", kind)
	}
	return nil
}
