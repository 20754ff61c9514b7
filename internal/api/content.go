package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rastercell/lms-api/internal/article"
	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/video"
)

type articlePayload struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Thumbnail string    `json:"thumbnail"`
	Date      time.Time `json:"date"`
}

func (a *API) listArticleCatalog(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.articles.ListCatalog(c.Request.Context(), article.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaginatedArticles(res))
}

func (a *API) listArticlesMine(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.articles.ListMine(c.Request.Context(), article.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaginatedArticles(res))
}

func (a *API) getArticleByID(c *gin.Context) {
	res, err := a.articles.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toArticle(*res))
}

func (a *API) getArticleByArticleID(c *gin.Context) {
	articleID, ok := pathInt64(c, "articleId")
	if !ok {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid article id")))
		return
	}

	res, err := a.articles.GetByArticleID(c.Request.Context(), articleID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toArticle(*res))
}

func (a *API) createArticle(c *gin.Context) {
	var p articlePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.articles.Create(c.Request.Context(), article.CreateArticleRequest{
		Title:     p.Title,
		Content:   p.Content,
		Thumbnail: p.Thumbnail,
		Author:    id.UserID,
		Date:      p.Date,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toArticle(*res))
}

func (a *API) updateArticle(c *gin.Context) {
	var p articlePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.articles.Update(c.Request.Context(), article.UpdateArticleRequest{
		ID:        c.Param("id"),
		Title:     p.Title,
		Content:   p.Content,
		Thumbnail: p.Thumbnail,
		Date:      p.Date,
		ActorID:   id.UserID,
		ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toArticle(*res))
}

func (a *API) blockArticle(c *gin.Context) {
	res, err := a.articles.Block(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toArticle(*res))
}

func (a *API) unblockArticle(c *gin.Context) {
	res, err := a.articles.Unblock(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toArticle(*res))
}

func (a *API) deleteArticle(c *gin.Context) {
	id := identity(c)
	res, err := a.articles.Delete(c.Request.Context(), article.DeleteArticleRequest{
		ID:        c.Param("id"),
		ActorID:   id.UserID,
		ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toArticle(*res))
}

type videoPayload struct {
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	LengthInSeconds int64     `json:"lengthInSeconds"`
	Lecturer        string    `json:"lecturer"`
	Description     string    `json:"description"`
	Tags            []string  `json:"tags"`
	Thumbnail       string    `json:"thumbnail"`
	PublishedDate   time.Time `json:"publishedDate"`
}

func (a *API) listVideoCatalog(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.videos.ListCatalog(c.Request.Context(), video.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaginatedVideos(res))
}

func (a *API) listVideosMine(c *gin.Context) {
	page, perPage, query := pageParams(c)
	id := identity(c)

	res, err := a.videos.ListMine(c.Request.Context(), video.ListRequest{
		Page: page, PerPage: perPage, Query: query,
		ActorID: id.UserID, ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaginatedVideos(res))
}

func (a *API) getVideoByID(c *gin.Context) {
	res, err := a.videos.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideo(*res))
}

func (a *API) getVideoByVideoID(c *gin.Context) {
	videoID, ok := pathInt64(c, "videoId")
	if !ok {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid video id")))
		return
	}

	res, err := a.videos.GetByVideoID(c.Request.Context(), videoID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideo(*res))
}

func (a *API) createVideo(c *gin.Context) {
	var p videoPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.videos.Create(c.Request.Context(), video.CreateVideoRequest{
		Title:           p.Title,
		URL:             p.URL,
		LengthInSeconds: p.LengthInSeconds,
		Lecturer:        p.Lecturer,
		Author:          id.UserID,
		Description:     p.Description,
		Tags:            p.Tags,
		Thumbnail:       p.Thumbnail,
		PublishedDate:   p.PublishedDate,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toVideo(*res))
}

func (a *API) updateVideo(c *gin.Context) {
	var p videoPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.videos.Update(c.Request.Context(), video.UpdateVideoRequest{
		ID:              c.Param("id"),
		Title:           p.Title,
		URL:             p.URL,
		LengthInSeconds: p.LengthInSeconds,
		Lecturer:        p.Lecturer,
		Description:     p.Description,
		Tags:            p.Tags,
		Thumbnail:       p.Thumbnail,
		PublishedDate:   p.PublishedDate,
		ActorID:         id.UserID,
		ActorRole:       id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideo(*res))
}

func (a *API) blockVideo(c *gin.Context) {
	res, err := a.videos.Block(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideo(*res))
}

func (a *API) unblockVideo(c *gin.Context) {
	res, err := a.videos.Unblock(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideo(*res))
}

func (a *API) deleteVideo(c *gin.Context) {
	id := identity(c)
	res, err := a.videos.Delete(c.Request.Context(), video.DeleteVideoRequest{
		ID:        c.Param("id"),
		ActorID:   id.UserID,
		ActorRole: id.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toVideo(*res))
}

func toPaginatedArticles(res *article.PaginatedArticles) Paginated[Article] {
	out := Paginated[Article]{
		Data:       make([]Article, 0, len(res.Data)),
		TotalCount: res.TotalCount,
	}
	for _, item := range res.Data {
		out.Data = append(out.Data, toArticle(item))
	}
	return out
}

func toPaginatedVideos(res *video.PaginatedVideos) Paginated[Video] {
	out := Paginated[Video]{
		Data:       make([]Video, 0, len(res.Data)),
		TotalCount: res.TotalCount,
	}
	for _, item := range res.Data {
		out.Data = append(out.Data, toVideo(item))
	}
	return out
}
