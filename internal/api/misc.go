package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/file"
	"github.com/rastercell/lms-api/internal/leaderboard"
)

func (a *API) createFile(c *gin.Context) {
	var p struct {
		PublicID         string   `json:"publicId"`
		URL              string   `json:"url"`
		SecureURL        string   `json:"secureUrl"`
		ResourceType     string   `json:"resourceType"`
		Type             string   `json:"type"`
		Format           string   `json:"format"`
		Version          string   `json:"version"`
		Width            int      `json:"width"`
		Height           int      `json:"height"`
		Bytes            int64    `json:"bytes"`
		MimeType         string   `json:"mimeType"`
		OriginalFilename string   `json:"originalFilename"`
		Folder           string   `json:"folder"`
		Quality          string   `json:"quality"`
		Tags             []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.files.Save(c.Request.Context(), file.SaveFileRequest{
		PublicID:         p.PublicID,
		URL:              p.URL,
		SecureURL:        p.SecureURL,
		ResourceType:     p.ResourceType,
		Type:             p.Type,
		Format:           p.Format,
		Version:          p.Version,
		Width:            p.Width,
		Height:           p.Height,
		Bytes:            p.Bytes,
		MimeType:         p.MimeType,
		OriginalFilename: p.OriginalFilename,
		Folder:           p.Folder,
		Quality:          p.Quality,
		Tags:             p.Tags,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (a *API) listFiles(c *gin.Context) {
	res, err := a.files.List(c.Request.Context(), c.Query("folder"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) getFileByID(c *gin.Context) {
	res, err := a.files.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) deleteFile(c *gin.Context) {
	res, err := a.files.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) createLog(c *gin.Context) {
	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.logs.Record(c.Request.Context(), payload)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (a *API) listLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := a.logs.List(c.Request.Context(), limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) dashboardSummary(c *gin.Context) {
	id := identity(c)

	res, err := a.analytics.Dashboard(c.Request.Context(), id.UserID)
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalCourses":    res.TotalCourses,
		"totalQuizzes":    res.TotalQuizzes,
		"totalArticles":   res.TotalArticles,
		"totalVideos":     res.TotalVideos,
		"enrolledCourses": res.EnrolledCourses,
		"attendedQuizzes": res.AttendedQuizzes,
		"passedQuizzes":   res.PassedQuizzes,
		"failedQuizzes":   res.FailedQuizzes,
	})
}

func (a *API) getLeaderboard(c *gin.Context) {
	quizID, ok := pathInt64(c, "quizId")
	if !ok {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid quiz id")))
		return
	}

	res, err := a.leaderboard.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		QuizID: quizID,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
