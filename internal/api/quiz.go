package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rastercell/lms-api/internal/attempt"
	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/quiz"
)

type quizPayload struct {
	Title     string     `json:"title"`
	TimeLimit int64      `json:"timeLimit"`
	Level     string     `json:"level"`
	PassGrade float64    `json:"passGrade"`
	Questions []Question `json:"questions"`
	Thumbnail string     `json:"thumbnail"`
	Date      time.Time  `json:"date"`
}

func (p quizPayload) questions() []domain.Question {
	out := make([]domain.Question, 0, len(p.Questions))
	for _, q := range p.Questions {
		out = append(out, domain.Question(q))
	}
	return out
}

func (a *API) listQuizzesForEditor(c *gin.Context) {
	id := identity(c)

	list, err := a.quizzes.ListEditor(c.Request.Context(), quiz.ListEditorRequest{
		ActorID:   id.UserID,
		ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	out := make([]Quiz, 0, len(list))
	for _, q := range list {
		out = append(out, toQuiz(q))
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) listQuizCatalog(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.quizzes.ListCatalog(c.Request.Context(), quiz.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaginatedQuizzes(res))
}

func (a *API) listQuizzesMine(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.quizzes.ListMine(c.Request.Context(), quiz.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaginatedQuizzes(res))
}

func (a *API) listQuizzesFinished(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.quizzes.ListFinishedByUser(c.Request.Context(), quiz.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaginatedQuizzes(res))
}

func (a *API) getQuizByID(c *gin.Context) {
	q, err := a.quizzes.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuiz(*q))
}

func (a *API) getQuizByQuizID(c *gin.Context) {
	quizID, ok := pathInt64(c, "quizId")
	if !ok {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid quiz id")))
		return
	}

	q, err := a.quizzes.GetPublicByQuizID(c.Request.Context(), quizID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuiz(*q))
}

func (a *API) createQuiz(c *gin.Context) {
	var p quizPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	q, err := a.quizzes.Create(c.Request.Context(), quiz.CreateQuizRequest{
		Title:      p.Title,
		TimeLimit:  p.TimeLimit,
		Level:      p.Level,
		PassGrade:  decimal.NewFromFloat(p.PassGrade),
		Questions:  p.questions(),
		Thumbnail:  p.Thumbnail,
		Instructor: id.UserID,
		Date:       p.Date,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toQuiz(*q))
}

func (a *API) updateQuiz(c *gin.Context) {
	var p quizPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	q, err := a.quizzes.Update(c.Request.Context(), quiz.UpdateQuizRequest{
		ID:        c.Param("id"),
		Title:     p.Title,
		TimeLimit: p.TimeLimit,
		Level:     p.Level,
		PassGrade: decimal.NewFromFloat(p.PassGrade),
		Questions: p.questions(),
		Thumbnail: p.Thumbnail,
		Date:      p.Date,
		ActorID:   id.UserID,
		ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuiz(*q))
}

func (a *API) blockQuiz(c *gin.Context) {
	q, err := a.quizzes.Block(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuiz(*q))
}

func (a *API) unblockQuiz(c *gin.Context) {
	q, err := a.quizzes.Unblock(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuiz(*q))
}

func (a *API) deleteQuiz(c *gin.Context) {
	id := identity(c)
	q, err := a.quizzes.Delete(c.Request.Context(), quiz.DeleteQuizRequest{
		ID:        c.Param("id"),
		ActorID:   id.UserID,
		ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuiz(*q))
}

type attemptPayload struct {
	QuizID  int64    `json:"quizId"`
	Answers []Answer `json:"answers"`
}

func (a *API) startQuiz(c *gin.Context) {
	var p attemptPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	q, err := a.attempts.StartAttempt(c.Request.Context(), attempt.StartAttemptRequest{
		QuizID:   p.QuizID,
		UserID:   id.UserID,
		UserName: id.Name,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuiz(*q))
}

func (a *API) submitQuiz(c *gin.Context) {
	var p attemptPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	answers := make([]domain.Answer, 0, len(p.Answers))
	for _, ans := range p.Answers {
		answers = append(answers, domain.Answer(ans))
	}

	id := identity(c)
	res, err := a.attempts.SubmitAttempt(c.Request.Context(), attempt.SubmitAttemptRequest{
		QuizID:   p.QuizID,
		UserID:   id.UserID,
		UserName: id.Name,
		Answers:  answers,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuizResult(*res))
}

func (a *API) isCompletedQuiz(c *gin.Context) {
	var p attemptPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.attempts.CheckCompletion(c.Request.Context(), attempt.CheckCompletionRequest{
		QuizID: p.QuizID,
		UserID: id.UserID,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	out := QuizCompletion{
		IsFinished: res.IsFinished,
		IsStarted:  res.IsStarted,
	}
	if res.Result != nil {
		r := toQuizResult(*res.Result)
		out.QuizHistory = &r
	}
	c.JSON(http.StatusOK, out)
}

func toPaginatedQuizzes(res *quiz.PaginatedQuizzes) Paginated[Quiz] {
	out := Paginated[Quiz]{
		Data:       make([]Quiz, 0, len(res.Data)),
		TotalCount: res.TotalCount,
	}
	for _, item := range res.Data {
		q := toQuiz(item.Quiz)
		q.IsFinished = item.IsFinished
		out.Data = append(out.Data, q)
	}
	return out
}
