package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// InterviewSettings tunes the mock interview and the generative calls behind it
type InterviewSettings struct {
	NominalQuestions   int           `yaml:"nominal_questions"`
	MinAnswerLength    int           `yaml:"min_answer_length"`
	PlaceholderAnswers []string      `yaml:"placeholder_answers"`
	GenerationTimeout  time.Duration `yaml:"generation_timeout"`
	SpeechTimeout      time.Duration `yaml:"speech_timeout"`
	TranscribeTimeout  time.Duration `yaml:"transcribe_timeout"`
	CVTimeout          time.Duration `yaml:"cv_timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	RetryBackoff       time.Duration `yaml:"retry_backoff"`
	RequestsPerMinute  int           `yaml:"requests_per_minute"`
	SpeechSampleRate   int           `yaml:"speech_sample_rate"`
	MaxAnswerBytes     int           `yaml:"max_answer_bytes"`
}

// DefaultInterviewSettings returns the settings used when no file is given
func DefaultInterviewSettings() InterviewSettings {
	return InterviewSettings{
		NominalQuestions: 7,
		MinAnswerLength:  5,
		PlaceholderAnswers: []string{
			"[no speech detected]",
			"no speech detected",
			"[inaudible]",
			"[silence]",
			"transcription not available",
		},
		GenerationTimeout: 90 * time.Second,
		SpeechTimeout:     60 * time.Second,
		TranscribeTimeout: 60 * time.Second,
		CVTimeout:         3 * time.Minute,
		MaxRetries:        3,
		RetryBackoff:      2 * time.Second,
		RequestsPerMinute: 30,
		SpeechSampleRate:  24000,
		MaxAnswerBytes:    10 << 20,
	}
}

// LoadInterviewSettings reads YAML settings from path, filling unset fields
// with defaults. An empty path returns the defaults.
func LoadInterviewSettings(path string) (InterviewSettings, error) {
	settings := DefaultInterviewSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read interview settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse interview settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid interview settings: %w", err)
	}

	return settings, nil
}

// Validate checks the settings are usable
func (s InterviewSettings) Validate() error {
	if s.NominalQuestions <= 0 {
		return fmt.Errorf("nominal_questions must be positive")
	}
	if s.MinAnswerLength < 0 {
		return fmt.Errorf("min_answer_length cannot be negative")
	}
	for i, p := range s.PlaceholderAnswers {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("placeholder_answers[%d] is empty", i)
		}
	}
	if s.GenerationTimeout <= 0 || s.SpeechTimeout <= 0 || s.TranscribeTimeout <= 0 || s.CVTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	if s.RetryBackoff < 0 {
		return fmt.Errorf("retry_backoff cannot be negative")
	}
	if s.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}
	if s.SpeechSampleRate <= 0 {
		return fmt.Errorf("speech_sample_rate must be positive")
	}
	return nil
}
