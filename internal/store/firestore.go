package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/profile"
)

// FirestoreOptions selects the Firestore database
type FirestoreOptions struct {
	ProjectID       string
	Database        string
	CredentialsFile string
}

// FirestoreStore keeps each collection in a Firestore collection of the same
// name. Documents are written as their JSON shape.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to Firestore
func NewFirestoreStore(ctx context.Context, opts FirestoreOptions) (*FirestoreStore, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the firestore backend")
	}
	database := opts.Database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := firestore.NewClientWithDatabase(ctx, opts.ProjectID, database, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// toDocument converts v to the map Firestore stores
func toDocument(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(snap *firestore.DocumentSnapshot, v any) error {
	data, err := json.Marshal(snap.Data())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *FirestoreStore) set(ctx context.Context, collection, id string, v any) error {
	doc, err := toDocument(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) get(ctx context.Context, collection, id string) (*firestore.DocumentSnapshot, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	return snap, nil
}

func getAs[T any](ctx context.Context, s *FirestoreStore, collection, id string) (T, error) {
	var out T
	snap, err := s.get(ctx, collection, id)
	if err != nil {
		return out, err
	}
	if err := fromDocument(snap, &out); err != nil {
		return out, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return out, nil
}

// listByUser runs the equality-filtered scan shared by the per-user collections
func listByUser[T any](ctx context.Context, s *FirestoreStore, collection, email string) ([]T, error) {
	iter := s.client.Collection(collection).Where("userEmail", "==", NormalizeEmail(email)).Documents(ctx)
	defer iter.Stop()

	out := make([]T, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		var item T
		if err := fromDocument(snap, &item); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, snap.Ref.ID, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// GetUser returns an approved user
func (s *FirestoreStore) GetUser(ctx context.Context, email string) (models.User, error) {
	u, err := getAs[models.User](ctx, s, CollectionApprovedUsers, NormalizeEmail(email))
	if err != nil {
		return models.User{}, err
	}
	if u.Email == "" {
		u.Email = NormalizeEmail(email)
	}
	return u, nil
}

// ApproveUser adds or replaces an approved user
func (s *FirestoreStore) ApproveUser(ctx context.Context, user models.User) error {
	user.Email = NormalizeEmail(user.Email)
	if user.Email == "" {
		return fmt.Errorf("user email is required")
	}
	if user.ApprovedAt.IsZero() {
		user.ApprovedAt = time.Now().UTC()
	}
	return s.set(ctx, CollectionApprovedUsers, user.Email, user)
}

// GetProfile loads and migrates the user's profile. Upgraded profiles are
// written back so the migration runs once per document.
func (s *FirestoreStore) GetProfile(ctx context.Context, email string) (models.CandidateProfile, error) {
	key := NormalizeEmail(email)
	snap, err := s.get(ctx, CollectionProfiles, key)
	if err != nil {
		return models.CandidateProfile{}, err
	}
	raw, err := json.Marshal(snap.Data())
	if err != nil {
		return models.CandidateProfile{}, fmt.Errorf("decode profile %s: %w", key, err)
	}
	p, err := profile.Migrate(raw)
	if err != nil {
		return models.CandidateProfile{}, err
	}

	if storedVersion(snap.Data()) != models.ProfileSchemaVersion {
		if err := s.set(ctx, CollectionProfiles, key, p); err != nil {
			return models.CandidateProfile{}, err
		}
	}
	return p, nil
}

// storedVersion reads schemaVersion, which comes back as a double when it
// was written from JSON
func storedVersion(doc map[string]any) int {
	switch v := doc["schemaVersion"].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// SaveProfile normalizes and stores the user's profile
func (s *FirestoreStore) SaveProfile(ctx context.Context, email string, p models.CandidateProfile) error {
	key := NormalizeEmail(email)
	if key == "" {
		return fmt.Errorf("profile email is required")
	}
	return s.set(ctx, CollectionProfiles, key, profile.Touch(p, time.Now()))
}

// SaveReport stores a finished interview report
func (s *FirestoreStore) SaveReport(ctx context.Context, r models.InterviewReport) error {
	if err := requireID("report", r.ID); err != nil {
		return err
	}
	r.UserEmail = NormalizeEmail(r.UserEmail)
	return s.set(ctx, CollectionInterviewReports, r.ID, r)
}

// GetReport returns one report
func (s *FirestoreStore) GetReport(ctx context.Context, id string) (models.InterviewReport, error) {
	return getAs[models.InterviewReport](ctx, s, CollectionInterviewReports, id)
}

// ListReports returns the user's reports, newest first
func (s *FirestoreStore) ListReports(ctx context.Context, email string) ([]models.InterviewReport, error) {
	out, err := listByUser[models.InterviewReport](ctx, s, CollectionInterviewReports, email)
	if err != nil {
		return nil, err
	}
	newestFirst(out, func(r models.InterviewReport) time.Time { return r.CreatedAt })
	return out, nil
}

// SaveCVAnalysis stores a CV analysis
func (s *FirestoreStore) SaveCVAnalysis(ctx context.Context, a models.CVAnalysis) error {
	if err := requireID("cv analysis", a.ID); err != nil {
		return err
	}
	a.UserEmail = NormalizeEmail(a.UserEmail)
	return s.set(ctx, CollectionCVAnalyses, a.ID, a)
}

// GetCVAnalysis returns one CV analysis
func (s *FirestoreStore) GetCVAnalysis(ctx context.Context, id string) (models.CVAnalysis, error) {
	return getAs[models.CVAnalysis](ctx, s, CollectionCVAnalyses, id)
}

// ListCVAnalyses returns the user's analyses, newest first
func (s *FirestoreStore) ListCVAnalyses(ctx context.Context, email string) ([]models.CVAnalysis, error) {
	out, err := listByUser[models.CVAnalysis](ctx, s, CollectionCVAnalyses, email)
	if err != nil {
		return nil, err
	}
	newestFirst(out, func(a models.CVAnalysis) time.Time { return a.CreatedAt })
	return out, nil
}

// SaveGeneratedCV stores a rewritten CV
func (s *FirestoreStore) SaveGeneratedCV(ctx context.Context, cv models.GeneratedCV) error {
	if err := requireID("generated cv", cv.ID); err != nil {
		return err
	}
	cv.UserEmail = NormalizeEmail(cv.UserEmail)
	return s.set(ctx, CollectionGeneratedCVs, cv.ID, cv)
}

// GetGeneratedCV returns one rewritten CV
func (s *FirestoreStore) GetGeneratedCV(ctx context.Context, id string) (models.GeneratedCV, error) {
	return getAs[models.GeneratedCV](ctx, s, CollectionGeneratedCVs, id)
}

// ListGeneratedCVs returns the user's rewritten CVs, newest first
func (s *FirestoreStore) ListGeneratedCVs(ctx context.Context, email string) ([]models.GeneratedCV, error) {
	out, err := listByUser[models.GeneratedCV](ctx, s, CollectionGeneratedCVs, email)
	if err != nil {
		return nil, err
	}
	newestFirst(out, func(cv models.GeneratedCV) time.Time { return cv.CreatedAt })
	return out, nil
}

// Close releases the Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
