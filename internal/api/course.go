package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rastercell/lms-api/internal/course"
	"github.com/rastercell/lms-api/internal/domain"
	"github.com/rastercell/lms-api/internal/errors"
)

type coursePayload struct {
	Title       string           `json:"title"`
	NumArticles int              `json:"numArticles"`
	NumVideos   int              `json:"numVideos"`
	NumQuizzes  int              `json:"numQuizzes"`
	Level       string           `json:"level"`
	Timeline    int              `json:"timeline"`
	CourseIndex [][]CourseModule `json:"courseIndex"`
	Thumbnail   string           `json:"thumbnail"`
	Date        time.Time        `json:"date"`
}

func (a *API) listCourseCatalog(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.courses.ListCatalog(c.Request.Context(), course.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaginatedCourses(res))
}

func (a *API) listCoursesMine(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.courses.ListMine(c.Request.Context(), course.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaginatedCourses(res))
}

func (a *API) listCoursesEnrolled(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.courses.ListEnrolledByUser(c.Request.Context(), course.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaginatedCourses(res))
}

func (a *API) getCourseByID(c *gin.Context) {
	res, err := a.courses.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourse(*res))
}

func (a *API) getCoursePreview(c *gin.Context) {
	courseID, ok := pathInt64(c, "courseId")
	if !ok {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid course id")))
		return
	}

	res, err := a.courses.Preview(c.Request.Context(), courseID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourse(*res))
}

func (a *API) getCourseByCourseID(c *gin.Context) {
	courseID, ok := pathInt64(c, "courseId")
	if !ok {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid course id")))
		return
	}

	id := identity(c)
	res, err := a.courses.GetByCourseID(c.Request.Context(), courseID, id.UserID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourse(*res))
}

func (a *API) createCourse(c *gin.Context) {
	var p coursePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.courses.Create(c.Request.Context(), course.CreateCourseRequest{
		Title:       p.Title,
		NumArticles: p.NumArticles,
		NumVideos:   p.NumVideos,
		NumQuizzes:  p.NumQuizzes,
		Instructor:  id.UserID,
		Level:       p.Level,
		Timeline:    p.Timeline,
		CourseIndex: fromCourseIndex(p.CourseIndex),
		Thumbnail:   p.Thumbnail,
		Date:        p.Date,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCourse(*res))
}

type enrollPayload struct {
	CourseID int64    `json:"courseId"`
	Progress Progress `json:"progress"`
}

func (a *API) isEnrolled(c *gin.Context) {
	var p enrollPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.courses.IsEnrolled(c.Request.Context(), p.CourseID, id.UserID)
	if err != nil {
		a.fail(c, err)
		return
	}

	out := toCourse(*res.Course)
	out.IsEnrolled = res.IsEnrolled
	c.JSON(http.StatusOK, out)
}

func (a *API) enrollCourse(c *gin.Context) {
	var p enrollPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.courses.Enroll(c.Request.Context(), p.CourseID, id.UserID)
	if err != nil {
		a.fail(c, err)
		return
	}

	out := toCourse(*res)
	out.IsEnrolled = true
	c.JSON(http.StatusOK, out)
}

func (a *API) updateCourseProgress(c *gin.Context) {
	var p enrollPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.courses.UpdateProgress(c.Request.Context(), p.CourseID, id.UserID, domain.Progress(p.Progress))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toEnrollment(*res))
}

func (a *API) updateCourse(c *gin.Context) {
	var p coursePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.courses.Update(c.Request.Context(), course.UpdateCourseRequest{
		ID:          c.Param("id"),
		Title:       p.Title,
		NumArticles: p.NumArticles,
		NumVideos:   p.NumVideos,
		NumQuizzes:  p.NumQuizzes,
		Level:       p.Level,
		Timeline:    p.Timeline,
		CourseIndex: fromCourseIndex(p.CourseIndex),
		Thumbnail:   p.Thumbnail,
		Date:        p.Date,
		ActorID:     id.UserID,
		ActorRole:   id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourse(*res))
}

func (a *API) blockCourse(c *gin.Context) {
	res, err := a.courses.Block(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourse(*res))
}

func (a *API) unblockCourse(c *gin.Context) {
	res, err := a.courses.Unblock(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourse(*res))
}

func (a *API) deleteCourse(c *gin.Context) {
	id := identity(c)
	res, err := a.courses.Delete(c.Request.Context(), course.DeleteCourseRequest{
		ID:        c.Param("id"),
		ActorID:   id.UserID,
		ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCourse(*res))
}

func toPaginatedCourses(res *course.PaginatedCourses) Paginated[Course] {
	out := Paginated[Course]{
		Data:       make([]Course, 0, len(res.Data)),
		TotalCount: res.TotalCount,
	}
	for _, item := range res.Data {
		cc := toCourse(item.Course)
		cc.IsEnrolled = item.IsEnrolled
		out.Data = append(out.Data, cc)
	}
	return out
}
