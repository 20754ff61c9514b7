package attempt

import (
	"github.com/shopspring/decimal"

	"github.com/rastercell/lms-api/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Grade scores a list of answers against a quiz's questions. It is a pure
// function: the same inputs always derive the same result, so a finished
// attempt can be re-graded on read instead of storing the breakdown.
//
// An answer counts when its question reference matches a question's id and
// the submitted value equals the correct answer exactly. Answers that match
// no question are ignored. A quiz with no questions grades to zero rather
// than dividing by it.
func Grade(questions []domain.Question, answers []domain.Answer, passGrade decimal.Decimal) domain.GradingResult {
	correct := 0
	for _, q := range questions {
		for _, a := range answers {
			if a.Question != q.QuestionID {
				continue
			}
			if a.Answer == q.Answer {
				correct++
			}
			break
		}
	}

	total := len(questions)
	score := decimal.Zero
	if total > 0 {
		score = hundred.Mul(decimal.NewFromInt(int64(correct))).Div(decimal.NewFromInt(int64(total)))
	}

	return domain.GradingResult{
		IsPassed:       score.GreaterThanOrEqual(passGrade),
		Score:          score,
		PassGrade:      passGrade,
		TotalQuestions: total,
		CorrectAnswers: correct,
		UserAnswers:    answers,
		Questions:      questions,
	}
}
