package app

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"exam-quiz-service/internal/domain"
)

const (
	maxRecommendations = 5
	weakSubjectRatio   = 0.6
	slowAnswerSeconds  = 120
	rushedSeconds      = 30
)

// Score computes the results of a session completed at now.
func Score(session domain.QuizSession, now time.Time) domain.QuizResults {
	total := len(session.Questions)
	timeTaken := int(now.Sub(session.StartTime) / time.Second)
	if timeTaken < 0 {
		timeTaken = 0
	}
	perQuestion := 0
	if total > 0 {
		perQuestion = timeTaken / total
	}

	correct, answered := 0, 0
	subjects := make(map[string]domain.SubjectResult)
	detailed := make([]domain.QuestionResult, 0, total)
	for i, q := range session.Questions {
		var selected *string
		if i < len(session.Answers) {
			selected = session.Answers[i]
		}
		isCorrect := selected != nil && *selected == q.CorrectAnswer
		if selected != nil {
			answered++
		}
		subject := q.SubjectOrDefault()
		sr := subjects[subject]
		sr.Total++
		if isCorrect {
			correct++
			sr.Correct++
		}
		subjects[subject] = sr

		detailed = append(detailed, domain.QuestionResult{
			QuestionID:     q.ID,
			Subject:        subject,
			IsCorrect:      isCorrect,
			SelectedAnswer: selected,
			CorrectAnswer:  q.CorrectAnswer,
			Explanation:    q.Explanation,
			TimeSpent:      perQuestion,
		})
	}

	results := domain.QuizResults{
		SessionID:          session.ID,
		UserID:             session.UserID,
		QuizType:           session.QuizType,
		Score:              percent(correct, total),
		Accuracy:           percent(correct, answered),
		TotalQuestions:     total,
		CorrectAnswers:     correct,
		AnsweredQuestions:  answered,
		TimeTaken:          timeTaken,
		SubjectWiseResults: subjects,
		DetailedResults:    detailed,
		CompletedAt:        now,
	}
	results.Recommendations = Recommendations(results)
	return results
}

// percent returns round(100*n/d), or 0 when d is 0.
func percent(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(math.Round(100 * float64(n) / float64(d)))
}

// Recommendations applies the rule table in priority order: score tier, weak
// subjects, pacing, quiz type. At most five entries are returned.
func Recommendations(r domain.QuizResults) []string {
	var recs []string

	switch {
	case r.Score >= 80:
		recs = append(recs,
			"Excellent work! You have a strong grasp of these topics.",
			"Challenge yourself with a higher difficulty level.",
		)
	case r.Score >= 60:
		recs = append(recs,
			"Good effort. Review the explanations for the questions you missed.",
			"Practice more questions at this level to build consistency.",
		)
	default:
		recs = append(recs,
			"Focus on strengthening your fundamentals before moving on.",
			"Go through the explanations for every question carefully.",
			"Revisit the basic concepts in your standard reference books.",
		)
	}

	if weak := weakSubjects(r.SubjectWiseResults); len(weak) > 0 {
		recs = append(recs, fmt.Sprintf("Spend extra time on your weak areas: %s.", strings.Join(weak, ", ")))
	}

	if r.TotalQuestions > 0 {
		avg := float64(r.TimeTaken) / float64(r.TotalQuestions)
		switch {
		case avg > slowAnswerSeconds:
			recs = append(recs, "You are taking long per question. Practice timed quizzes to improve your speed.")
		case avg < rushedSeconds:
			recs = append(recs, "You are answering very quickly. Read each question and all options carefully.")
		}
	}

	if msg, ok := quizTypeAdvice[r.QuizType]; ok {
		recs = append(recs, msg)
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

var quizTypeAdvice = map[domain.QuizType]string{
	domain.QuizFreeDaily:       "Keep your streak going with tomorrow's daily quiz.",
	domain.QuizCurrentAffairs:  "Read the newspaper daily and make short notes on key events.",
	domain.QuizSubjectPractice: "Pick one subject each week and practice it in depth.",
	domain.QuizPYQ:             "Analyse previous year trends to spot frequently tested themes.",
	domain.QuizMockPrelims:     "Take a full-length mock every week under exam conditions.",
}

func weakSubjects(subjects map[string]domain.SubjectResult) []string {
	var weak []string
	for name, sr := range subjects {
		if sr.Total == 0 {
			continue
		}
		if float64(sr.Correct)/float64(sr.Total) < weakSubjectRatio {
			weak = append(weak, name)
		}
	}
	sort.Strings(weak)
	return weak
}
