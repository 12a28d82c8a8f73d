package app

import (
	"context"
	"fmt"
	"time"

	"exam-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionRepository abstracts how quiz sessions and their results are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Create(ctx context.Context, session domain.QuizSession) error
	Get(ctx context.Context, sessionID string) (domain.QuizSession, error)
	// Update applies fn to the stored session and writes it back. An error from fn
	// aborts without writing. Implementations must not let an update overwrite a
	// session that was completed concurrently.
	Update(ctx context.Context, sessionID string, fn func(*domain.QuizSession) error) (domain.QuizSession, error)
	// Finalize runs score against the active session, then stores the results and
	// flips completed as one unit. If the session is already completed, the stored
	// results are returned with created=false and score is not called.
	Finalize(ctx context.Context, sessionID string, score func(*domain.QuizSession) (domain.QuizResults, error)) (results domain.QuizResults, created bool, err error)
	GetResults(ctx context.Context, sessionID string) (domain.QuizResults, error)
}

// StatsRepository keeps per-user running statistics.
type StatsRepository interface {
	RecordResults(ctx context.Context, results domain.QuizResults) (domain.UserStats, error)
	GetStats(ctx context.Context, userID string) (domain.UserStats, error)
}

// UsageRecorder accepts usage for completed quizzes without blocking the caller.
type UsageRecorder interface {
	Record(userID string, quizType domain.QuizType, results domain.QuizResults)
}

const defaultMaxQuestions = 100

// QuizService contains the quiz session use cases.
type QuizService struct {
	sessions     SessionRepository
	stats        StatsRepository
	pool         *QuestionPool
	gate         *AccessGate
	usage        UsageRecorder
	maxQuestions int
	now          func() time.Time
	newID        func() string
}

func NewQuizService(sessions SessionRepository, stats StatsRepository, pool *QuestionPool, gate *AccessGate, usage UsageRecorder) *QuizService {
	return &QuizService{
		sessions:     sessions,
		stats:        stats,
		pool:         pool,
		gate:         gate,
		usage:        usage,
		maxQuestions: defaultMaxQuestions,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// WithMaxQuestions caps the number of questions a single quiz may request.
func (s *QuizService) WithMaxQuestions(n int) *QuizService {
	if n > 0 {
		s.maxQuestions = n
	}
	return s
}

func (s *QuizService) timestamp() time.Time {
	return s.now().UTC().Round(0)
}

// GenerateRequest starts a new quiz.
type GenerateRequest struct {
	UserID       string
	QuizType     domain.QuizType
	Difficulty   domain.Difficulty
	Subject      string
	MaxQuestions int
}

// GenerateResult is a freshly created session.
type GenerateResult struct {
	SessionID string
	Questions []domain.Question
	TimeLimit int
}

// Generate checks access, draws questions and creates the session.
func (s *QuizService) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	if req.UserID == "" || req.QuizType == "" || req.Difficulty == "" || req.Subject == "" || req.MaxQuestions <= 0 {
		return GenerateResult{}, fmt.Errorf("%w: userId, quizType, difficulty, subject and maxQuestions are required", domain.ErrInvalidRequest)
	}
	if !req.Difficulty.Valid() {
		return GenerateResult{}, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidRequest, req.Difficulty)
	}
	if req.MaxQuestions > s.maxQuestions {
		return GenerateResult{}, fmt.Errorf("%w: maxQuestions must be at most %d", domain.ErrInvalidRequest, s.maxQuestions)
	}

	decision := s.gate.Decide(ctx, req.UserID, req.QuizType)
	if !decision.Allowed {
		return GenerateResult{}, domain.ErrAccessDenied
	}

	questions, err := s.pool.FetchQuestions(ctx, req.QuizType, req.Difficulty, req.Subject, req.MaxQuestions)
	if err != nil {
		return GenerateResult{}, err
	}
	if len(questions) == 0 {
		return GenerateResult{}, domain.ErrNoQuestions
	}

	id, err := s.CreateSession(ctx, req.UserID, req.QuizType, questions, decision.TimeLimit)
	if err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{SessionID: id, Questions: questions, TimeLimit: decision.TimeLimit}, nil
}

// CreateSession persists a new active session and returns its id.
func (s *QuizService) CreateSession(ctx context.Context, userID string, quizType domain.QuizType, questions []domain.Question, timeLimit int) (string, error) {
	if len(questions) == 0 {
		return "", domain.ErrNoQuestions
	}
	if timeLimit <= 0 {
		return "", fmt.Errorf("%w: time limit must be positive", domain.ErrInvalidRequest)
	}

	session := domain.QuizSession{
		ID:                   s.newID(),
		UserID:               userID,
		QuizType:             quizType,
		Questions:            questions,
		TimeLimit:            timeLimit,
		StartTime:            s.timestamp(),
		CurrentQuestionIndex: 0,
		Answers:              make([]*string, len(questions)),
		Bookmarked:           make([]bool, len(questions)),
		TimeRemaining:        timeLimit,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return session.ID, nil
}

// ProgressUpdate is a client autosave of an active session.
type ProgressUpdate struct {
	SessionID            string
	CurrentQuestionIndex int
	Answers              []*string
	Bookmarked           []bool
	TimeRemaining        int
}

// SaveProgress overwrites the session's progress. Every check runs before the write.
func (s *QuizService) SaveProgress(ctx context.Context, update ProgressUpdate) (time.Time, error) {
	if update.SessionID == "" {
		return time.Time{}, fmt.Errorf("%w: sessionId is required", domain.ErrInvalidRequest)
	}
	savedAt := s.timestamp()
	_, err := s.sessions.Update(ctx, update.SessionID, func(session *domain.QuizSession) error {
		if session.Completed {
			return domain.ErrSessionCompleted
		}
		if err := validateProgress(*session, update); err != nil {
			return err
		}
		session.CurrentQuestionIndex = update.CurrentQuestionIndex
		session.Answers = update.Answers
		session.Bookmarked = update.Bookmarked
		session.TimeRemaining = update.TimeRemaining
		session.LastProgressSave = &savedAt
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return savedAt, nil
}

func validateProgress(session domain.QuizSession, update ProgressUpdate) error {
	if len(update.Answers) != len(update.Bookmarked) {
		return fmt.Errorf("%w: answers and bookmarked must have the same length", domain.ErrInvalidRequest)
	}
	if len(update.Answers) != len(session.Questions) {
		return fmt.Errorf("%w: expected %d answers, got %d", domain.ErrInvalidRequest, len(session.Questions), len(update.Answers))
	}
	if update.CurrentQuestionIndex < 0 || update.CurrentQuestionIndex >= len(update.Answers) {
		return fmt.Errorf("%w: currentQuestionIndex out of range", domain.ErrInvalidRequest)
	}
	if update.TimeRemaining < 0 {
		return fmt.Errorf("%w: timeRemaining cannot be negative", domain.ErrInvalidRequest)
	}
	return validateAnswers(session.Questions, update.Answers)
}

func validateAnswers(questions []domain.Question, answers []*string) error {
	for i, a := range answers {
		if a == nil {
			continue
		}
		if len(*a) != 1 || (*a)[0] < 'A' || (*a)[0] > 'Z' {
			return fmt.Errorf("%w: answer %d must be a single letter", domain.ErrInvalidRequest, i)
		}
		if n := len(questions[i].Options); n > 0 && int((*a)[0]-'A') >= n {
			return fmt.Errorf("%w: answer %d is not one of the options", domain.ErrInvalidRequest, i)
		}
	}
	return nil
}

// GetProgress returns the progress snapshot of a session.
func (s *QuizService) GetProgress(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// ResetProgress clears answers and bookmarks and restores the full time limit.
func (s *QuizService) ResetProgress(ctx context.Context, sessionID string) error {
	_, err := s.sessions.Update(ctx, sessionID, func(session *domain.QuizSession) error {
		if session.Completed {
			return domain.ErrSessionCompleted
		}
		n := len(session.Questions)
		session.Answers = make([]*string, n)
		session.Bookmarked = make([]bool, n)
		session.CurrentQuestionIndex = 0
		session.TimeRemaining = session.TimeLimit
		return nil
	})
	return err
}

// CompleteRequest finalizes a session. FinalAnswers, when set, replaces stored answers.
// TimeTaken is accepted from clients but the server clock is authoritative.
type CompleteRequest struct {
	SessionID    string
	FinalAnswers []*string
	TimeTaken    *int
}

// Complete scores the session and stores its results. Calling it again on a
// completed session returns the stored results.
func (s *QuizService) Complete(ctx context.Context, req CompleteRequest) (domain.QuizResults, error) {
	if req.SessionID == "" {
		return domain.QuizResults{}, fmt.Errorf("%w: sessionId is required", domain.ErrInvalidRequest)
	}

	now := s.timestamp()
	results, created, err := s.sessions.Finalize(ctx, req.SessionID, func(session *domain.QuizSession) (domain.QuizResults, error) {
		if req.FinalAnswers != nil {
			if len(req.FinalAnswers) != len(session.Questions) {
				return domain.QuizResults{}, fmt.Errorf("%w: expected %d final answers, got %d", domain.ErrInvalidRequest, len(session.Questions), len(req.FinalAnswers))
			}
			if err := validateAnswers(session.Questions, req.FinalAnswers); err != nil {
				return domain.QuizResults{}, err
			}
			session.Answers = req.FinalAnswers
		}
		return Score(*session, now), nil
	})
	if err != nil {
		return domain.QuizResults{}, err
	}
	if !created {
		return results, nil
	}

	if s.stats != nil {
		if _, err := s.stats.RecordResults(ctx, results); err != nil {
			log.Error().Err(err).Str("sessionId", results.SessionID).Str("userId", results.UserID).Msg("failed to update user stats")
		}
	}
	if s.usage != nil {
		s.usage.Record(results.UserID, results.QuizType, results)
	}
	return results, nil
}

// GetResults returns the stored results of a completed session.
func (s *QuizService) GetResults(ctx context.Context, sessionID string) (domain.QuizResults, error) {
	return s.sessions.GetResults(ctx, sessionID)
}

// GetStats returns a user's running statistics.
func (s *QuizService) GetStats(ctx context.Context, userID string) (domain.UserStats, error) {
	if s.stats == nil {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	return s.stats.GetStats(ctx, userID)
}

// Access reports whether userID may start quizType, with the resolved tier.
func (s *QuizService) Access(ctx context.Context, userID string, quizType domain.QuizType) AccessDecision {
	return s.gate.Decide(ctx, userID, quizType)
}

// SessionOwner returns the user that owns a session.
func (s *QuizService) SessionOwner(ctx context.Context, sessionID string) (string, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}
