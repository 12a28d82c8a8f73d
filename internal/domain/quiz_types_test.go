package domain

import "testing"

func TestQuizTypeAllowLists(t *testing.T) {
	tests := []struct {
		quizType QuizType
		tier     Tier
		want     bool
	}{
		{QuizFreeDaily, TierFree, true},
		{QuizFreeDaily, TierElite, true},
		{QuizCurrentAffairs, TierFree, false},
		{QuizCurrentAffairs, TierFoundation, true},
		{QuizSubjectPractice, TierFoundation, false},
		{QuizPYQ, TierPractice, true},
		{QuizMockPrelims, TierFree, false},
		{QuizMockPrelims, TierPractice, false},
		{QuizMockPrelims, TierMains, true},
		{QuizMockPrelims, TierInterview, true},
		{QuizMockPrelims, TierElite, true},
	}

	for _, tt := range tests {
		cfg, ok := tt.quizType.Config()
		if !ok {
			t.Fatalf("expected config for %s", tt.quizType)
		}
		if got := cfg.Allows(tt.tier); got != tt.want {
			t.Errorf("%s allows %s = %v, want %v", tt.quizType, tt.tier, got, tt.want)
		}
	}
}

func TestUnknownQuizTypeHasNoConfig(t *testing.T) {
	if _, ok := QuizType("weekly-mega").Config(); ok {
		t.Fatalf("expected unknown quiz type to be unconfigured")
	}
}

func TestQuestionSubjectDefault(t *testing.T) {
	if got := (Question{}).SubjectOrDefault(); got != GeneralStudies {
		t.Fatalf("expected %q, got %q", GeneralStudies, got)
	}
	if got := (Question{Subject: "Polity"}).SubjectOrDefault(); got != "Polity" {
		t.Fatalf("expected Polity, got %q", got)
	}
}
