package interview

import (
	"fmt"

	"github.com/faseelanwar-cpu/interview-coach/internal/export"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/turns"
)

const (
	retryWarning     = "We could not hear a clear answer. Please answer again."
	generationFailed = "The interviewer could not prepare the next question. Please start a new interview."
	synthesisFailed  = "The question audio could not be generated. Please start a new interview."
	playbackFailed   = "The question audio could not be played. Please start a new interview."
	captureFailed    = "The microphone could not be started. Please start a new interview."
	permissionDenied = "Microphone access was denied. Allow microphone access and start a new interview."
)

// Reduce is the interview state machine. It never performs I/O: it returns
// the next session and the effects the runner must carry out. Messages that
// do not fit the current status are ignored.
func Reduce(rules Rules, s Session, msg Message) (Session, []Effect) {
	if s.Status.Terminal() {
		return s, nil
	}

	switch m := msg.(type) {
	case Start:
		if s.Status != StatusInitializing {
			return ignored(s, msg)
		}
		return s, []Effect{AcquireCapture{}}

	case CaptureAcquired:
		if s.Status != StatusInitializing {
			return ignored(s, msg)
		}
		s.Status = StatusAwaitingQuestion
		return s, []Effect{RequestTurn{Input: turnInput(s, nil)}}

	case CaptureDenied:
		if s.Status != StatusInitializing {
			return ignored(s, msg)
		}
		return fail(s, FailurePermission, permissionDenied, m.Err)

	case TurnGenerated:
		if s.Status != StatusAwaitingQuestion && s.Status != StatusAwaitingAnalysis {
			return ignored(s, msg)
		}
		return applyStep(s, m)

	case TurnFailed:
		if s.Status != StatusAwaitingQuestion && s.Status != StatusAwaitingAnalysis {
			return ignored(s, msg)
		}
		return fail(s, FailureGeneration, generationFailed, m.Err)

	case SpeechReady:
		if s.Status != StatusAwaitingAudioGeneration {
			return ignored(s, msg)
		}
		s.Status = StatusPlayingQuestion
		return s, []Effect{PlayAudio{Clip: m.Clip}}

	case SpeechFailed:
		if s.Status != StatusAwaitingAudioGeneration {
			return ignored(s, msg)
		}
		return fail(s, FailureSynthesis, synthesisFailed, m.Err)

	case PlaybackFinished:
		if s.Status != StatusPlayingQuestion {
			return ignored(s, msg)
		}
		s.Status = StatusRecording
		return s, []Effect{StartCapture{}}

	case PlaybackFailed:
		if s.Status != StatusPlayingQuestion {
			return ignored(s, msg)
		}
		return fail(s, FailurePlayback, playbackFailed, m.Err)

	case CaptureFailed:
		if s.Status != StatusRecording {
			return ignored(s, msg)
		}
		return fail(s, FailureCapture, captureFailed, m.Err)

	case StopRequested:
		if !s.CanStopRecording() {
			return ignored(s, msg)
		}
		s.Status = StatusTranscribing
		return s, []Effect{StopCapture{}}

	case AudioCaptured:
		// the capture may also end on its own, without a stop request
		if s.Status != StatusTranscribing && s.Status != StatusRecording {
			return ignored(s, msg)
		}
		if m.Blob.Empty() {
			return retryAnswer(s, "empty recording")
		}
		s.Status = StatusTranscribing
		return s, []Effect{Transcribe{Blob: m.Blob}}

	case Transcribed:
		if s.Status != StatusTranscribing {
			return ignored(s, msg)
		}
		if rules.IsDegenerate(m.Text) {
			return retryAnswer(s, fmt.Sprintf("degenerate transcription %q", m.Text))
		}
		return submitAnswer(s, m.Text)

	case TranscriptionFailed:
		if s.Status != StatusTranscribing {
			return ignored(s, msg)
		}
		return retryAnswer(s, fmt.Sprintf("transcription failed: %v", m.Err))
	}

	return ignored(s, msg)
}

func applyStep(s Session, m TurnGenerated) (Session, []Effect) {
	var effects []Effect

	switch step := m.Step.(type) {
	case turns.QuestionStep:
		if step.PreviousAnalysis != nil {
			s = patchLastTurn(s, *step.PreviousAnalysis)
		}

		number := len(s.Transcript) + 1
		if step.Question.Number != number {
			effects = append(effects, Log{Message: fmt.Sprintf(
				"session %s: model numbered question %d, using %d", s.ID, step.Question.Number, number)})
		}

		transcript := make([]models.Turn, len(s.Transcript), len(s.Transcript)+1)
		copy(transcript, s.Transcript)
		s.Transcript = append(transcript, models.NewTurn(number, step.Question.Text, step.Question.Source))
		s.CurrentQuestionNumber = number
		s.CurrentQuestionText = step.Question.Text
		s.Status = StatusAwaitingAudioGeneration
		s.Warning = ""
		return s, append(effects, SynthesizeSpeech{Text: step.Question.Text})

	case turns.ReportStep:
		if step.FinalAnalysis != nil {
			s = patchLastTurn(s, *step.FinalAnalysis)
		}
		report := assembleReport(s, step.Summary, m)
		s.Report = &report
		s.Status = StatusComplete
		s.Warning = ""
		return s, []Effect{ReleaseCapture{}, SaveReport{Report: report}}
	}

	return fail(s, FailureGeneration, generationFailed, fmt.Errorf("unexpected step %T", m.Step))
}

func patchLastTurn(s Session, a models.Analysis) Session {
	if _, ok := s.currentTurn(); !ok {
		return s
	}
	s.Transcript = s.withLastTurn(func(t *models.Turn) { t.ApplyAnalysis(a) })
	return s
}

func submitAnswer(s Session, text string) (Session, []Effect) {
	if _, ok := s.currentTurn(); !ok {
		return fail(s, FailureGeneration, generationFailed, fmt.Errorf("answer without a question"))
	}
	s.Transcript = s.withLastTurn(func(t *models.Turn) { t.CandidateAnswer = text })
	s.Status = StatusAwaitingAnalysis
	s.Warning = ""
	return s, []Effect{RequestTurn{Input: turnInput(s, &text)}}
}

func retryAnswer(s Session, reason string) (Session, []Effect) {
	s.Status = StatusRecording
	s.Warning = retryWarning
	return s, []Effect{
		Log{Message: fmt.Sprintf("session %s: question %d retry, %s", s.ID, s.CurrentQuestionNumber, reason)},
		StartCapture{},
	}
}

func fail(s Session, kind FailureKind, message string, err error) (Session, []Effect) {
	s.Status = StatusFailed
	s.FailureKind = kind
	s.Error = message
	s.Warning = ""
	return s, []Effect{
		Log{Message: fmt.Sprintf("session %s failed (%s): %v", s.ID, kind, err)},
		ReleaseCapture{},
	}
}

func ignored(s Session, msg Message) (Session, []Effect) {
	return s, []Effect{Log{Message: fmt.Sprintf("session %s: ignoring %T in %s", s.ID, msg, s.Status)}}
}

func turnInput(s Session, answer *string) turns.Input {
	transcript := make([]models.Turn, len(s.Transcript))
	copy(transcript, s.Transcript)
	return turns.Input{
		JobDescription: s.JobDescription,
		Material:       s.Material,
		Transcript:     transcript,
		Answer:         answer,
	}
}

func assembleReport(s Session, summary models.ReportSummary, m TurnGenerated) models.InterviewReport {
	transcript := make([]models.Turn, len(s.Transcript))
	copy(transcript, s.Transcript)

	report := models.InterviewReport{
		ID:             s.ID,
		UserEmail:      s.UserEmail,
		JobDescription: s.JobDescription,
		Summary:        summary,
		Transcript:     transcript,
		CreatedAt:      m.At,
	}
	report.TextRendering = export.ReportText(report)
	report.MarkdownRendering = export.ReportMarkdown(report)
	return report
}
