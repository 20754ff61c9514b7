package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/rastercell/lms-api/internal/analytics"
	"github.com/rastercell/lms-api/internal/article"
	"github.com/rastercell/lms-api/internal/attempt"
	"github.com/rastercell/lms-api/internal/auth"
	"github.com/rastercell/lms-api/internal/course"
	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/event"
	"github.com/rastercell/lms-api/internal/file"
	"github.com/rastercell/lms-api/internal/leaderboard"
	"github.com/rastercell/lms-api/internal/logrec"
	"github.com/rastercell/lms-api/internal/quiz"
	"github.com/rastercell/lms-api/internal/user"
	"github.com/rastercell/lms-api/internal/video"
)

type Config struct {
	Router   *gin.Engine
	EventBus *event.Bus

	Auth        *auth.Service
	User        *user.Service
	Quiz        *quiz.Service
	Attempt     *attempt.Service
	Course      *course.Service
	Article     *article.Service
	Video       *video.Service
	Leaderboard *leaderboard.Service
	File        *file.Service
	Log         *logrec.Service
	Analytics   *analytics.Service

	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// API is the REST surface. Routes live under /lms-api and guard themselves
// with role middleware; handlers stay thin and defer to the services.
type API struct {
	auth        *auth.Service
	users       *user.Service
	quizzes     *quiz.Service
	attempts    *attempt.Service
	courses     *course.Service
	articles    *article.Service
	videos      *video.Service
	leaderboard *leaderboard.Service
	files       *file.Service
	logs        *logrec.Service
	analytics   *analytics.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		auth:        c.Auth,
		users:       c.User,
		quizzes:     c.Quiz,
		attempts:    c.Attempt,
		courses:     c.Course,
		articles:    c.Article,
		videos:      c.Video,
		leaderboard: c.Leaderboard,
		files:       c.File,
		logs:        c.Log,
		analytics:   c.Analytics,
		redis:       c.Redis,
		prefix:      c.PubsubPrefix,
	}

	a.registerRoutes(c.Router)

	c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
	})

	return a
}

func (a *API) registerRoutes(r *gin.Engine) {
	editors := []string{auth.RoleInstructor, auth.RoleModerator, auth.RoleAdmin, auth.RoleSuperAdmin}
	moderators := []string{auth.RoleModerator, auth.RoleAdmin, auth.RoleSuperAdmin}
	admins := []string{auth.RoleAdmin, auth.RoleSuperAdmin}
	writers := []string{auth.RoleWriter, auth.RoleModerator, auth.RoleAdmin, auth.RoleSuperAdmin}

	root := r.Group("/lms-api", auth.Middleware(a.auth))

	ar := root.Group("/auth")
	{
		ar.POST("/authenticate", a.authenticate)
		ar.POST("/signup", a.signup)
		ar.POST("/forgot-password", a.forgotPassword)
	}

	ur := root.Group("/users")
	{
		ur.GET("/getall", auth.RequireRoles(admins...), a.listUsers)
		ur.GET("/getbyid/:id", auth.RequireRoles(admins...), a.getUserByID)
		ur.GET("/getbyuserid/:userId", auth.RequireRoles(admins...), a.getUserByUserID)
		ur.PUT("/update", auth.AnyRole(), a.updateProfile)
		ur.PUT("/changeuserrole", auth.RequireRoles(admins...), a.changeUserRole)
		ur.PUT("/change-password", auth.AnyRole(), a.changePassword)
		ur.DELETE("/delete/:id", auth.RequireRoles(admins...), a.deleteUser)
	}

	qr := root.Group("/quizzes")
	{
		qr.GET("/getlist", auth.RequireRoles(editors...), a.listQuizzesForEditor)
		qr.GET("/getpaginatedcatalog", a.listQuizCatalog)
		qr.GET("/getpaginatedlist", auth.RequireRoles(editors...), a.listQuizzesMine)
		qr.GET("/getpaginatedcatalogbyuser", auth.AnyRole(), a.listQuizzesFinished)
		qr.GET("/getbyid/:id", auth.AnyRole(), a.getQuizByID)
		qr.GET("/getbyquizid/:quizId", auth.AnyRole(), a.getQuizByQuizID)
		qr.POST("/create", auth.RequireRoles(editors...), a.createQuiz)
		qr.POST("/iscompletedquiz", auth.AnyRole(), a.isCompletedQuiz)
		qr.POST("/startquiz", auth.AnyRole(), a.startQuiz)
		qr.POST("/submitquiz", auth.AnyRole(), a.submitQuiz)
		qr.PUT("/update/:id", auth.RequireRoles(editors...), a.updateQuiz)
		qr.POST("/block/:id", auth.RequireRoles(moderators...), a.blockQuiz)
		qr.POST("/unblock/:id", auth.RequireRoles(moderators...), a.unblockQuiz)
		qr.DELETE("/delete/:id", auth.RequireRoles(auth.RoleInstructor, auth.RoleAdmin, auth.RoleSuperAdmin), a.deleteQuiz)
	}

	cr := root.Group("/courses")
	{
		cr.GET("/getpaginatedcatalog", a.listCourseCatalog)
		cr.GET("/getpaginatedlist", auth.RequireRoles(editors...), a.listCoursesMine)
		cr.GET("/getpaginatedcatalogbyuser", auth.AnyRole(), a.listCoursesEnrolled)
		cr.GET("/getbyid/:id", auth.RequireRoles(editors...), a.getCourseByID)
		cr.GET("/getcoursepreview/:courseId", a.getCoursePreview)
		cr.GET("/getbycourseid/:courseId", auth.AnyRole(), a.getCourseByCourseID)
		cr.POST("/create", auth.RequireRoles(editors...), a.createCourse)
		cr.POST("/isenrolled", auth.AnyRole(), a.isEnrolled)
		cr.POST("/enrollcourse", auth.AnyRole(), a.enrollCourse)
		cr.POST("/updatecourseprogress", auth.AnyRole(), a.updateCourseProgress)
		cr.PUT("/update/:id", auth.RequireRoles(editors...), a.updateCourse)
		cr.POST("/block/:id", auth.RequireRoles(moderators...), a.blockCourse)
		cr.POST("/unblock/:id", auth.RequireRoles(moderators...), a.unblockCourse)
		cr.DELETE("/delete/:id", auth.RequireRoles(auth.RoleInstructor, auth.RoleAdmin, auth.RoleSuperAdmin), a.deleteCourse)
	}

	arr := root.Group("/articles")
	{
		arr.GET("/getpaginatedcatalog", a.listArticleCatalog)
		arr.GET("/getpaginatedlist", auth.RequireRoles(writers...), a.listArticlesMine)
		arr.GET("/getbyid/:id", auth.RequireRoles(writers...), a.getArticleByID)
		arr.GET("/getbyarticleid/:articleId", a.getArticleByArticleID)
		arr.POST("/create", auth.RequireRoles(writers...), a.createArticle)
		arr.PUT("/update/:id", auth.RequireRoles(writers...), a.updateArticle)
		arr.POST("/block/:id", auth.RequireRoles(moderators...), a.blockArticle)
		arr.POST("/unblock/:id", auth.RequireRoles(moderators...), a.unblockArticle)
		arr.DELETE("/delete/:id", auth.RequireRoles(auth.RoleWriter, auth.RoleAdmin, auth.RoleSuperAdmin), a.deleteArticle)
	}

	vr := root.Group("/videos")
	{
		vr.GET("/getpaginatedcatalog", a.listVideoCatalog)
		vr.GET("/getpaginatedlist", auth.RequireRoles(editors...), a.listVideosMine)
		vr.GET("/getbyid/:id", auth.RequireRoles(editors...), a.getVideoByID)
		vr.GET("/getbyvideoid/:videoId", auth.AnyRole(), a.getVideoByVideoID)
		vr.POST("/create", auth.RequireRoles(editors...), a.createVideo)
		vr.PUT("/update/:id", auth.RequireRoles(editors...), a.updateVideo)
		vr.POST("/block/:id", auth.RequireRoles(moderators...), a.blockVideo)
		vr.POST("/unblock/:id", auth.RequireRoles(moderators...), a.unblockVideo)
		vr.DELETE("/delete/:id", auth.RequireRoles(auth.RoleInstructor, auth.RoleAdmin, auth.RoleSuperAdmin), a.deleteVideo)
	}

	fr := root.Group("/files")
	{
		fr.POST("/create", auth.RequireRoles(writers...), a.createFile)
		fr.GET("/getall", auth.RequireRoles(admins...), a.listFiles)
		fr.GET("/getbyid/:id", auth.RequireRoles(admins...), a.getFileByID)
		fr.DELETE("/delete/:id", auth.RequireRoles(admins...), a.deleteFile)
	}

	lr := root.Group("/logs")
	{
		lr.POST("/create", a.createLog)
		lr.GET("/getall", auth.RequireRoles(admins...), a.listLogs)
	}

	root.GET("/analytics/getdashboardsummary", auth.AnyRole(), a.dashboardSummary)
	root.GET("/leaderboard/:quizId", auth.AnyRole(), a.getLeaderboard)
}

func (a *API) fail(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.JSON(e.HTTPStatusCode(), e)
}

func identity(c *gin.Context) auth.Identity {
	id, _ := auth.IdentityFrom(c)
	return id
}
