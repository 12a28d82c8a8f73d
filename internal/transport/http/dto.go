package http

import (
	"time"

	"exam-quiz-service/internal/domain"
)

type generateRequest struct {
	UserID       string `json:"userId" validate:"required"`
	QuizType     string `json:"quizType" validate:"required"`
	Difficulty   string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Subject      string `json:"subject" validate:"required"`
	MaxQuestions int    `json:"maxQuestions" validate:"required,gt=0"`
}

// clientQuestion hides the answer key while a quiz is in progress.
type clientQuestion struct {
	ID         string            `json:"id"`
	Question   string            `json:"question"`
	Options    []string          `json:"options"`
	Subject    string            `json:"subject"`
	Difficulty domain.Difficulty `json:"difficulty"`
	ImageURL   string            `json:"imageUrl,omitempty"`
	Year       int               `json:"year,omitempty"`
	Source     string            `json:"source,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
}

func toClientQuestions(questions []domain.Question) []clientQuestion {
	out := make([]clientQuestion, 0, len(questions))
	for _, q := range questions {
		out = append(out, clientQuestion{
			ID:         q.ID,
			Question:   q.Question,
			Options:    q.Options,
			Subject:    q.Subject,
			Difficulty: q.Difficulty,
			ImageURL:   q.ImageURL,
			Year:       q.Year,
			Source:     q.Source,
			Tags:       q.Tags,
		})
	}
	return out
}

type generateResponse struct {
	SessionID string           `json:"sessionId"`
	Questions []clientQuestion `json:"questions"`
	TimeLimit int              `json:"timeLimit"`
	Success   bool             `json:"success"`
}

type progressPayload struct {
	CurrentQuestionIndex *int      `json:"currentQuestionIndex" validate:"required"`
	Answers              []*string `json:"answers" validate:"required"`
	Bookmarked           []bool    `json:"bookmarked" validate:"required"`
	TimeRemaining        *int      `json:"timeRemaining" validate:"required"`
}

type progressRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	progressPayload
}

type successResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type completeRequest struct {
	SessionID    string    `json:"sessionId" validate:"required"`
	FinalAnswers []*string `json:"finalAnswers"`
	TimeTaken    *int      `json:"timeTaken" validate:"omitempty,gte=0"`
}

type errorResponse struct {
	Error string `json:"error"`
}
