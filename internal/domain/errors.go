package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request fields are missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAccessDenied is returned when the user's tier does not allow the quiz type.
	ErrAccessDenied = errors.New("access denied for quiz type")
	// ErrSessionNotFound is returned when a quiz session does not exist.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionCompleted is returned when mutating a session that has been finalized.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrResultsNotFound is returned when no results exist for a session.
	ErrResultsNotFound = errors.New("quiz results not found")
	// ErrStatsNotFound is returned when a user has no completed quizzes yet.
	ErrStatsNotFound = errors.New("user stats not found")
	// ErrNoQuestions indicates the pool produced nothing to quiz on.
	ErrNoQuestions = errors.New("no questions found")
	// ErrPoolUnavailable indicates the question store could not be reached.
	ErrPoolUnavailable = errors.New("question pool unavailable")
	// ErrTierNotFound means the user has no subscription record.
	ErrTierNotFound = errors.New("subscription tier not found")
)
