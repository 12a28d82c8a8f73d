package domain

import (
	"fmt"
	"math"
	"time"
)

// GeneralStudies is the catch-all subject; pool queries skip the subject filter for it.
const GeneralStudies = "General Studies"

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question models a single-answer MCQ. CorrectAnswer is a letter indexing Options (A = first).
type Question struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Explanation   string     `json:"explanation"`
	Subject       string     `json:"subject"`
	Difficulty    Difficulty `json:"difficulty"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	Year          int        `json:"year,omitempty"`
	Source        string     `json:"source,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
}

// SubjectOrDefault returns the question subject, or General Studies when unset.
func (q Question) SubjectOrDefault() string {
	if q.Subject == "" {
		return GeneralStudies
	}
	return q.Subject
}

// QuestionQuery filters a question pool.
type QuestionQuery struct {
	Pool       string
	Difficulty Difficulty
	Subject    string // empty means any subject
	Limit      int
}

// CacheKey identifies the query for caching.
func (q QuestionQuery) CacheKey() string {
	subject := q.Subject
	if subject == "" {
		subject = "*"
	}
	return fmt.Sprintf("%s:%s:%s:%d", q.Pool, q.Difficulty, subject, q.Limit)
}

// QuizSession is one user's attempt at a generated set of questions.
// Answers holds nil for unanswered questions.
type QuizSession struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	QuizType             QuizType   `json:"quizType"`
	Questions            []Question `json:"questions"`
	TimeLimit            int        `json:"timeLimit"`
	StartTime            time.Time  `json:"startTime"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Answers              []*string  `json:"answers"`
	Bookmarked           []bool     `json:"bookmarked"`
	TimeRemaining        int        `json:"timeRemaining"`
	LastProgressSave     *time.Time `json:"lastProgressSave,omitempty"`
	Completed            bool       `json:"completed"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a copy that shares no mutable slices with s.
func (s QuizSession) Clone() QuizSession {
	c := s
	c.Questions = append([]Question(nil), s.Questions...)
	c.Answers = make([]*string, len(s.Answers))
	for i, a := range s.Answers {
		if a != nil {
			v := *a
			c.Answers[i] = &v
		}
	}
	c.Bookmarked = append([]bool(nil), s.Bookmarked...)
	if s.LastProgressSave != nil {
		t := *s.LastProgressSave
		c.LastProgressSave = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// SessionSnapshot is the progress view of a session returned to clients.
type SessionSnapshot struct {
	SessionID            string     `json:"sessionId"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Answers              []*string  `json:"answers"`
	Bookmarked           []bool     `json:"bookmarked"`
	TimeRemaining        int        `json:"timeRemaining"`
	Completed            bool       `json:"completed"`
	TotalQuestions       int        `json:"totalQuestions"`
	LastProgressSave     *time.Time `json:"lastProgressSave"`
}

// Snapshot returns the progress view of the session.
func (s QuizSession) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		SessionID:            s.ID,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		Answers:              s.Answers,
		Bookmarked:           s.Bookmarked,
		TimeRemaining:        s.TimeRemaining,
		Completed:            s.Completed,
		TotalQuestions:       len(s.Questions),
		LastProgressSave:     s.LastProgressSave,
	}
}

// SubjectResult counts outcomes for one subject.
type SubjectResult struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// QuestionResult is the per-question outcome of a completed session.
type QuestionResult struct {
	QuestionID     string  `json:"questionId"`
	Subject        string  `json:"subject"`
	IsCorrect      bool    `json:"isCorrect"`
	SelectedAnswer *string `json:"selectedAnswer"`
	CorrectAnswer  string  `json:"correctAnswer"`
	Explanation    string  `json:"explanation"`
	TimeSpent      int     `json:"timeSpent"`
}

// QuizResults is written once when a session completes.
type QuizResults struct {
	SessionID          string                   `json:"sessionId"`
	UserID             string                   `json:"userId"`
	QuizType           QuizType                 `json:"quizType"`
	Score              int                      `json:"score"`
	Accuracy           int                      `json:"accuracy"`
	TotalQuestions     int                      `json:"totalQuestions"`
	CorrectAnswers     int                      `json:"correctAnswers"`
	AnsweredQuestions  int                      `json:"answeredQuestions"`
	TimeTaken          int                      `json:"timeTaken"`
	SubjectWiseResults map[string]SubjectResult `json:"subjectWiseResults"`
	Recommendations    []string                 `json:"recommendations"`
	DetailedResults    []QuestionResult         `json:"detailedResults"`
	CompletedAt        time.Time                `json:"completedAt"`
}

// UserStats is a user's running performance record.
type UserStats struct {
	UserID         string    `json:"userId"`
	TotalQuizzes   int       `json:"totalQuizzes"`
	AverageScore   int       `json:"averageScore"`
	BestScore      int       `json:"bestScore"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	LastQuizAt     time.Time `json:"lastQuizAt"`
}

// Record folds a completed quiz into the stats. AverageScore is an incremental
// mean: round((avg*n + score) / (n+1)).
func (s UserStats) Record(r QuizResults) UserStats {
	n := s.TotalQuizzes
	s.AverageScore = int(math.Round(float64(s.AverageScore*n+r.Score) / float64(n+1)))
	s.TotalQuizzes = n + 1
	if r.Score > s.BestScore {
		s.BestScore = r.Score
	}
	s.TotalQuestions += r.TotalQuestions
	s.CorrectAnswers += r.CorrectAnswers
	s.LastQuizAt = r.CompletedAt
	return s
}

// UsageEntry is one completed quiz to be counted by the usage ledger.
type UsageEntry struct {
	UserID    string
	QuizType  QuizType
	Questions int
	Correct   int
	Score     int
	TimeSpent int
	At        time.Time
}

// Day returns the daily bucket key (UTC date) for the entry.
func (e UsageEntry) Day() string {
	return e.At.UTC().Format("2006-01-02")
}

// DailyUsage is the per-user, per-day counter bucket.
type DailyUsage struct {
	Quizzes   int `json:"quizzes"`
	Questions int `json:"questions"`
	Correct   int `json:"correct"`
	TimeSpent int `json:"timeSpent"`
}

// QuizTypeUsage is the per-user, per-quiz-type lifetime counter bucket.
type QuizTypeUsage struct {
	Attempts   int `json:"attempts"`
	Questions  int `json:"questions"`
	Correct    int `json:"correct"`
	TotalScore int `json:"totalScore"`
	LastScore  int `json:"lastScore"`
}
