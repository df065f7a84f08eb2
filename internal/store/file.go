package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/profile"
)

const dataFileName = "store.json"

type fileData struct {
	ApprovedUsers    map[string]models.User            `json:"approvedUsers"`
	Profiles         map[string]json.RawMessage        `json:"profiles"`
	InterviewReports map[string]models.InterviewReport `json:"interviewReports"`
	CVAnalyses       map[string]models.CVAnalysis      `json:"cvAnalyses"`
	GeneratedCVs     map[string]models.GeneratedCV     `json:"generatedCVs"`
}

// FileStore keeps every collection in one JSON file. Writes go to a temp
// file that replaces the original.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data fileData
}

// NewFileStore opens or creates the store under dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &FileStore{path: filepath.Join(dir, dataFileName)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = fileData{}
	s.ensureMaps()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			return s.saveLocked()
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureMaps()
	migrated, err := s.migrateProfilesLocked()
	if err != nil {
		return err
	}
	if migrated > 0 {
		log.Printf("Migrated %d stored profiles to schema version %d", migrated, models.ProfileSchemaVersion)
		return s.saveLocked()
	}
	return nil
}

// migrateProfilesLocked upgrades every stored profile once, at load
func (s *FileStore) migrateProfilesLocked() (int, error) {
	migrated := 0
	for email, raw := range s.data.Profiles {
		var header struct {
			SchemaVersion int `json:"schemaVersion"`
		}
		if err := json.Unmarshal(raw, &header); err == nil && header.SchemaVersion == models.ProfileSchemaVersion {
			continue
		}
		p, err := profile.Migrate(raw)
		if err != nil {
			return migrated, fmt.Errorf("migrate profile %s: %w", email, err)
		}
		encoded, err := json.Marshal(p)
		if err != nil {
			return migrated, err
		}
		s.data.Profiles[email] = encoded
		migrated++
	}
	return migrated, nil
}

func (s *FileStore) saveLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode store: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp store: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}

// ensureMaps back-fills collections missing from older files
func (s *FileStore) ensureMaps() {
	if s.data.ApprovedUsers == nil {
		s.data.ApprovedUsers = map[string]models.User{}
	}
	if s.data.Profiles == nil {
		s.data.Profiles = map[string]json.RawMessage{}
	}
	if s.data.InterviewReports == nil {
		s.data.InterviewReports = map[string]models.InterviewReport{}
	}
	if s.data.CVAnalyses == nil {
		s.data.CVAnalyses = map[string]models.CVAnalysis{}
	}
	if s.data.GeneratedCVs == nil {
		s.data.GeneratedCVs = map[string]models.GeneratedCV{}
	}

	for key, u := range s.data.ApprovedUsers {
		if u.Email == "" {
			u.Email = key
			s.data.ApprovedUsers[key] = u
		}
	}
}

// GetUser returns an approved user
func (s *FileStore) GetUser(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.data.ApprovedUsers[NormalizeEmail(email)]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, nil
}

// ApproveUser adds or replaces an approved user
func (s *FileStore) ApproveUser(ctx context.Context, user models.User) error {
	key := NormalizeEmail(user.Email)
	if key == "" {
		return fmt.Errorf("user email is required")
	}
	user.Email = key
	if user.ApprovedAt.IsZero() {
		user.ApprovedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ApprovedUsers[key] = user
	return s.saveLocked()
}

// GetProfile returns the user's profile
func (s *FileStore) GetProfile(ctx context.Context, email string) (models.CandidateProfile, error) {
	s.mu.RLock()
	raw, ok := s.data.Profiles[NormalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return models.CandidateProfile{}, fmt.Errorf("profile %s: %w", email, ErrNotFound)
	}

	// profiles were upgraded in load
	var p models.CandidateProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.CandidateProfile{}, fmt.Errorf("decode profile %s: %w", email, err)
	}
	return p, nil
}

// SaveProfile normalizes and stores the user's profile
func (s *FileStore) SaveProfile(ctx context.Context, email string, p models.CandidateProfile) error {
	key := NormalizeEmail(email)
	if key == "" {
		return fmt.Errorf("profile email is required")
	}
	p = profile.Touch(p, time.Now())
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Profiles[key] = raw
	return s.saveLocked()
}

// SaveReport stores a finished interview report
func (s *FileStore) SaveReport(ctx context.Context, r models.InterviewReport) error {
	if err := requireID("report", r.ID); err != nil {
		return err
	}
	r.UserEmail = NormalizeEmail(r.UserEmail)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.InterviewReports[r.ID] = r
	return s.saveLocked()
}

// GetReport returns one report
func (s *FileStore) GetReport(ctx context.Context, id string) (models.InterviewReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data.InterviewReports[id]
	if !ok {
		return models.InterviewReport{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return r, nil
}

// ListReports returns the user's reports, newest first
func (s *FileStore) ListReports(ctx context.Context, email string) ([]models.InterviewReport, error) {
	key := NormalizeEmail(email)
	s.mu.RLock()
	out := make([]models.InterviewReport, 0)
	for _, r := range s.data.InterviewReports {
		if r.UserEmail == key {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	newestFirst(out, func(r models.InterviewReport) time.Time { return r.CreatedAt })
	return out, nil
}

// SaveCVAnalysis stores a CV analysis
func (s *FileStore) SaveCVAnalysis(ctx context.Context, a models.CVAnalysis) error {
	if err := requireID("cv analysis", a.ID); err != nil {
		return err
	}
	a.UserEmail = NormalizeEmail(a.UserEmail)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.CVAnalyses[a.ID] = a
	return s.saveLocked()
}

// GetCVAnalysis returns one CV analysis
func (s *FileStore) GetCVAnalysis(ctx context.Context, id string) (models.CVAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data.CVAnalyses[id]
	if !ok {
		return models.CVAnalysis{}, fmt.Errorf("cv analysis %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// ListCVAnalyses returns the user's analyses, newest first
func (s *FileStore) ListCVAnalyses(ctx context.Context, email string) ([]models.CVAnalysis, error) {
	key := NormalizeEmail(email)
	s.mu.RLock()
	out := make([]models.CVAnalysis, 0)
	for _, a := range s.data.CVAnalyses {
		if a.UserEmail == key {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	newestFirst(out, func(a models.CVAnalysis) time.Time { return a.CreatedAt })
	return out, nil
}

// SaveGeneratedCV stores a rewritten CV
func (s *FileStore) SaveGeneratedCV(ctx context.Context, cv models.GeneratedCV) error {
	if err := requireID("generated cv", cv.ID); err != nil {
		return err
	}
	cv.UserEmail = NormalizeEmail(cv.UserEmail)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.GeneratedCVs[cv.ID] = cv
	return s.saveLocked()
}

// GetGeneratedCV returns one rewritten CV
func (s *FileStore) GetGeneratedCV(ctx context.Context, id string) (models.GeneratedCV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cv, ok := s.data.GeneratedCVs[id]
	if !ok {
		return models.GeneratedCV{}, fmt.Errorf("generated cv %s: %w", id, ErrNotFound)
	}
	return cv, nil
}

// ListGeneratedCVs returns the user's rewritten CVs, newest first
func (s *FileStore) ListGeneratedCVs(ctx context.Context, email string) ([]models.GeneratedCV, error) {
	key := NormalizeEmail(email)
	s.mu.RLock()
	out := make([]models.GeneratedCV, 0)
	for _, cv := range s.data.GeneratedCVs {
		if cv.UserEmail == key {
			out = append(out, cv)
		}
	}
	s.mu.RUnlock()

	newestFirst(out, func(cv models.GeneratedCV) time.Time { return cv.CreatedAt })
	return out, nil
}

// Close is a no-op; every write is already on disk
func (s *FileStore) Close() error {
	return nil
}
