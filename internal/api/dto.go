package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rastercell/lms-api/internal/domain"
)

// Wire types. Field names match what the web client already speaks.
type (
	Paginated[T any] struct {
		Data       []T   `json:"data"`
		TotalCount int64 `json:"totalCount"`
	}

	Question struct {
		QuestionID string   `json:"questionId"`
		Question   string   `json:"question"`
		Options    []string `json:"options"`
		Answer     string   `json:"answer,omitempty"`
	}

	Quiz struct {
		ID             string     `json:"id"`
		QuizID         int64      `json:"quizId"`
		Title          string     `json:"title"`
		NumQuestions   int        `json:"numQuestions"`
		TimeLimit      int64      `json:"timeLimit"`
		Level          string     `json:"level"`
		PassGrade      float64    `json:"passGrade"`
		Questions      []Question `json:"questions,omitempty"`
		Thumbnail      string     `json:"thumbnail"`
		Instructor     string     `json:"instructor"`
		InstructorName string     `json:"instructorName,omitempty"`
		Date           time.Time  `json:"date"`
		Status         string     `json:"status"`
		IsFinished     bool       `json:"isFinished,omitempty"`
	}

	Answer struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}

	QuizResult struct {
		IsPassed       bool       `json:"isPassed"`
		Score          float64    `json:"score"`
		PassGrade      float64    `json:"passGrade"`
		TotalQuestions int        `json:"totalQuestions"`
		CorrectAnswers int        `json:"correctAnswers"`
		UserAnswers    []Answer   `json:"userAnswers"`
		Questions      []Question `json:"questions"`
	}

	QuizCompletion struct {
		IsFinished  bool        `json:"isFinished"`
		IsStarted   bool        `json:"isStarted,omitempty"`
		QuizHistory *QuizResult `json:"quizHistory"`
	}

	CourseModule struct {
		ContentType string `json:"contentType"`
		ContentID   int64  `json:"contentId"`
		Title       string `json:"title,omitempty"`
		IsCompleted bool   `json:"isCompleted,omitempty"`
	}

	Course struct {
		ID             string           `json:"id"`
		CourseID       int64            `json:"courseId"`
		Title          string           `json:"title"`
		NumArticles    int              `json:"numArticles"`
		NumVideos      int              `json:"numVideos"`
		NumQuizzes     int              `json:"numQuizzes"`
		Instructor     string           `json:"instructor"`
		InstructorName string           `json:"instructorName,omitempty"`
		NumStudents    int64            `json:"numStudents"`
		Level          string           `json:"level"`
		Timeline       int              `json:"timeline"`
		CourseIndex    [][]CourseModule `json:"courseIndex,omitempty"`
		Thumbnail      string           `json:"thumbnail"`
		Date           time.Time        `json:"date"`
		Status         string           `json:"status"`
		IsEnrolled     bool             `json:"isEnrolled,omitempty"`
	}

	Progress struct {
		WeekNo      int  `json:"weekNo"`
		ModuleNo    int  `json:"moduleNo"`
		IsCompleted bool `json:"isCompleted"`
	}

	Enrollment struct {
		CourseID   int64      `json:"courseId"`
		UserID     string     `json:"userId"`
		IsEnrolled bool       `json:"isEnrolled"`
		EnrollDate time.Time  `json:"enrollDate"`
		IsFinished bool       `json:"isFinished"`
		Progress   []Progress `json:"progress"`
		Status     string     `json:"status"`
	}

	Article struct {
		ID         string    `json:"id"`
		ArticleID  int64     `json:"articleId"`
		Title      string    `json:"title"`
		Content    string    `json:"content,omitempty"`
		Thumbnail  string    `json:"thumbnail"`
		Author     string    `json:"author"`
		AuthorName string    `json:"authorName,omitempty"`
		Date       time.Time `json:"date"`
		Status     string    `json:"status"`
	}

	Video struct {
		ID              string    `json:"id"`
		VideoID         int64     `json:"videoId"`
		Title           string    `json:"title"`
		URL             string    `json:"url,omitempty"`
		LengthInSeconds int64     `json:"lengthInSeconds"`
		Lecturer        string    `json:"lecturer"`
		Author          string    `json:"author"`
		AuthorName      string    `json:"authorName,omitempty"`
		Description     string    `json:"description"`
		Tags            []string  `json:"tags"`
		ViewCount       int64     `json:"viewCount"`
		Thumbnail       string    `json:"thumbnail"`
		PublishedDate   time.Time `json:"publishedDate"`
		Status          string    `json:"status"`
	}

	User struct {
		ID              string    `json:"id"`
		UserID          int64     `json:"userId"`
		Email           string    `json:"email"`
		Role            string    `json:"role"`
		Name            string    `json:"name"`
		Phone           string    `json:"phone"`
		IsEmailVerified bool      `json:"isEmailVerified"`
		IsPhoneVerified bool      `json:"isPhoneVerified"`
		ProfileImage    string    `json:"profileImage"`
		Country         string    `json:"country"`
		PostalCode      string    `json:"postalCode"`
		Division        string    `json:"division"`
		District        string    `json:"district"`
		Upazila         string    `json:"upazila"`
		Status          string    `json:"status"`
	}
)

func toQuestions(in []domain.Question) []Question {
	if in == nil {
		return nil
	}
	out := make([]Question, 0, len(in))
	for _, q := range in {
		out = append(out, Question(q))
	}
	return out
}

func toQuiz(q domain.Quiz) Quiz {
	return Quiz{
		ID:             q.ID,
		QuizID:         q.QuizID,
		Title:          q.Title,
		NumQuestions:   q.NumQuestions,
		TimeLimit:      q.TimeLimit,
		Level:          q.Level,
		PassGrade:      q.PassGrade.InexactFloat64(),
		Questions:      toQuestions(q.Questions),
		Thumbnail:      q.Thumbnail,
		Instructor:     q.Instructor,
		InstructorName: q.InstructorName,
		Date:           q.Date,
		Status:         q.Status,
	}
}

func toAnswers(in []domain.Answer) []Answer {
	out := make([]Answer, 0, len(in))
	for _, a := range in {
		out = append(out, Answer(a))
	}
	return out
}

func toQuizResult(r domain.GradingResult) QuizResult {
	return QuizResult{
		IsPassed:       r.IsPassed,
		Score:          r.Score.InexactFloat64(),
		PassGrade:      r.PassGrade.InexactFloat64(),
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		UserAnswers:    toAnswers(r.UserAnswers),
		Questions:      toQuestions(r.Questions),
	}
}

func toCourseIndex(in [][]domain.CourseModule) [][]CourseModule {
	if in == nil {
		return nil
	}
	out := make([][]CourseModule, 0, len(in))
	for _, week := range in {
		modules := make([]CourseModule, 0, len(week))
		for _, m := range week {
			modules = append(modules, CourseModule{
				ContentType: string(m.ContentType),
				ContentID:   m.ContentID,
				Title:       m.Title,
				IsCompleted: m.IsCompleted,
			})
		}
		out = append(out, modules)
	}
	return out
}

func toCourse(c domain.Course) Course {
	return Course{
		ID:             c.ID,
		CourseID:       c.CourseID,
		Title:          c.Title,
		NumArticles:    c.NumArticles,
		NumVideos:      c.NumVideos,
		NumQuizzes:     c.NumQuizzes,
		Instructor:     c.Instructor,
		InstructorName: c.InstructorName,
		NumStudents:    c.NumStudents,
		Level:          c.Level,
		Timeline:       c.Timeline,
		CourseIndex:    toCourseIndex(c.CourseIndex),
		Thumbnail:      c.Thumbnail,
		Date:           c.Date,
		Status:         c.Status,
	}
}

func fromCourseIndex(in [][]CourseModule) [][]domain.CourseModule {
	out := make([][]domain.CourseModule, 0, len(in))
	for _, week := range in {
		modules := make([]domain.CourseModule, 0, len(week))
		for _, m := range week {
			modules = append(modules, domain.CourseModule{
				ContentType: domain.ContentType(m.ContentType),
				ContentID:   m.ContentID,
			})
		}
		out = append(out, modules)
	}
	return out
}

func toEnrollment(e domain.Enrollment) Enrollment {
	progress := make([]Progress, 0, len(e.Progress))
	for _, p := range e.Progress {
		progress = append(progress, Progress(p))
	}

	return Enrollment{
		CourseID:   e.CourseID,
		UserID:     e.UserID,
		IsEnrolled: e.IsEnrolled,
		EnrollDate: e.EnrollDate,
		IsFinished: e.IsFinished,
		Progress:   progress,
		Status:     e.Status,
	}
}

func toArticle(a domain.Article) Article {
	return Article{
		ID:         a.ID,
		ArticleID:  a.ArticleID,
		Title:      a.Title,
		Content:    a.Content,
		Thumbnail:  a.Thumbnail,
		Author:     a.Author,
		AuthorName: a.AuthorName,
		Date:       a.Date,
		Status:     a.Status,
	}
}

func toVideo(v domain.Video) Video {
	return Video{
		ID:              v.ID,
		VideoID:         v.VideoID,
		Title:           v.Title,
		URL:             v.URL,
		LengthInSeconds: v.LengthInSeconds,
		Lecturer:        v.Lecturer,
		Author:          v.Author,
		AuthorName:      v.AuthorName,
		Description:     v.Description,
		Tags:            v.Tags,
		ViewCount:       v.ViewCount,
		Thumbnail:       v.Thumbnail,
		PublishedDate:   v.PublishedDate,
		Status:          v.Status,
	}
}

func toUser(u domain.User) User {
	return User{
		ID:              u.ID,
		UserID:          u.UserID,
		Email:           u.Email,
		Role:            u.Role,
		Name:            u.Name,
		Phone:           u.Phone,
		IsEmailVerified: u.IsEmailVerified,
		IsPhoneVerified: u.IsPhoneVerified,
		ProfileImage:    u.ProfileImage,
		Country:         u.Country,
		PostalCode:      u.PostalCode,
		Division:        u.Division,
		District:        u.District,
		Upazila:         u.Upazila,
		Status:          u.Status,
	}
}

func pageParams(c *gin.Context) (page, perPage int, query string) {
	page, _ = strconv.Atoi(c.Query("page"))
	perPage, _ = strconv.Atoi(c.Query("perPage"))
	return page, perPage, c.Query("query")
}

func pathInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	return v, err == nil
}
