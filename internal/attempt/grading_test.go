package attempt_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rastercell/lms-api/internal/attempt"
	"github.com/rastercell/lms-api/internal/domain"
)

func TestGrade(t *testing.T) {
	questions := []domain.Question{
		{QuestionID: "q1", Question: "First?", Options: []string{"A", "B"}, Answer: "A"},
		{QuestionID: "q2", Question: "Second?", Options: []string{"A", "B"}, Answer: "B"},
	}

	tests := map[string]struct {
		questions []domain.Question
		answers   []domain.Answer
		passGrade decimal.Decimal

		wantScore   decimal.Decimal
		wantPassed  bool
		wantCorrect int
	}{
		"all correct": {
			questions: questions,
			answers: []domain.Answer{
				{Question: "q1", Answer: "A"},
				{Question: "q2", Answer: "B"},
			},
			passGrade:   decimal.NewFromInt(50),
			wantScore:   decimal.NewFromInt(100),
			wantPassed:  true,
			wantCorrect: 2,
		},

		"one correct passes on the boundary": {
			questions: questions,
			answers: []domain.Answer{
				{Question: "q1", Answer: "A"},
				{Question: "q2", Answer: "A"},
			},
			passGrade:   decimal.NewFromInt(50),
			wantScore:   decimal.NewFromInt(50),
			wantPassed:  true,
			wantCorrect: 1,
		},

		"one correct fails a higher bar": {
			questions: questions,
			answers: []domain.Answer{
				{Question: "q2", Answer: "B"},
			},
			passGrade:   decimal.NewFromInt(51),
			wantScore:   decimal.NewFromInt(50),
			wantPassed:  false,
			wantCorrect: 1,
		},

		"no answers": {
			questions:   questions,
			answers:     nil,
			passGrade:   decimal.NewFromInt(50),
			wantScore:   decimal.Zero,
			wantPassed:  false,
			wantCorrect: 0,
		},

		"answers referencing unknown questions are ignored": {
			questions: questions,
			answers: []domain.Answer{
				{Question: "q1", Answer: "A"},
				{Question: "nope", Answer: "A"},
				{Question: "", Answer: "B"},
			},
			passGrade:   decimal.NewFromInt(50),
			wantScore:   decimal.NewFromInt(50),
			wantPassed:  true,
			wantCorrect: 1,
		},

		"near miss is not a match": {
			questions: questions,
			answers: []domain.Answer{
				{Question: "q1", Answer: "a"},
			},
			passGrade:   decimal.NewFromInt(50),
			wantScore:   decimal.Zero,
			wantPassed:  false,
			wantCorrect: 0,
		},

		"zero questions grade to zero": {
			questions:   nil,
			answers:     []domain.Answer{{Question: "q1", Answer: "A"}},
			passGrade:   decimal.Zero,
			wantScore:   decimal.Zero,
			wantPassed:  true,
			wantCorrect: 0,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := attempt.Grade(tt.questions, tt.answers, tt.passGrade)

			require.True(t, tt.wantScore.Equal(got.Score), "score: want %s, got %s", tt.wantScore, got.Score)
			require.Equal(t, tt.wantPassed, got.IsPassed)
			require.Equal(t, tt.wantCorrect, got.CorrectAnswers)
			require.Equal(t, len(tt.questions), got.TotalQuestions)
		})
	}
}

func TestGrade_Deterministic(t *testing.T) {
	questions := []domain.Question{
		{QuestionID: "q1", Answer: "A"},
		{QuestionID: "q2", Answer: "B"},
		{QuestionID: "q3", Answer: "C"},
	}
	answers := []domain.Answer{
		{Question: "q1", Answer: "A"},
		{Question: "q3", Answer: "B"},
	}

	first := attempt.Grade(questions, answers, decimal.NewFromInt(30))
	for i := 0; i < 10; i++ {
		again := attempt.Grade(questions, answers, decimal.NewFromInt(30))
		require.True(t, first.Score.Equal(again.Score))
		require.Equal(t, first.IsPassed, again.IsPassed)
		require.Equal(t, first.CorrectAnswers, again.CorrectAnswers)
	}
}
