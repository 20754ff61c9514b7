package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rastercell/lms-api/internal/errors"
	"github.com/rastercell/lms-api/internal/user"
)

type authPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (a *API) authenticate(c *gin.Context) {
	var p authPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.users.Login(c.Request.Context(), user.LoginRequest{
		Email:    p.Email,
		Password: p.Password,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: res.AccessToken})
}

func (a *API) signup(c *gin.Context) {
	var p authPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.users.Signup(c.Request.Context(), user.SignupRequest{
		Email:    p.Email,
		Password: p.Password,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{AccessToken: res.AccessToken})
}

func (a *API) forgotPassword(c *gin.Context) {
	var p struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.users.ForgotPassword(c.Request.Context(), user.ForgotPasswordRequest{Email: p.Email})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}

func (a *API) changePassword(c *gin.Context) {
	var p struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.users.ChangePassword(c.Request.Context(), user.ChangePasswordRequest{
		Email:       id.Email,
		OldPassword: p.OldPassword,
		NewPassword: p.NewPassword,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": res.Message})
}

func (a *API) listUsers(c *gin.Context) {
	page, perPage, query := pageParams(c)

	res, err := a.users.List(c.Request.Context(), user.ListRequest{
		Page: page, PerPage: perPage, Query: query,
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	out := Paginated[User]{
		Data:       make([]User, 0, len(res.Data)),
		TotalCount: res.TotalCount,
	}
	for _, u := range res.Data {
		out.Data = append(out.Data, toUser(u))
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) getUserByID(c *gin.Context) {
	res, err := a.users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(*res))
}

func (a *API) getUserByUserID(c *gin.Context) {
	userNo, ok := pathInt64(c, "userId")
	if !ok {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid user id")))
		return
	}

	res, err := a.users.GetByUserID(c.Request.Context(), userNo)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(*res))
}

func (a *API) updateProfile(c *gin.Context) {
	var p struct {
		Name         string `json:"name"`
		Phone        string `json:"phone"`
		ProfileImage string `json:"profileImage"`
		Country      string `json:"country"`
		PostalCode   string `json:"postalCode"`
		Division     string `json:"division"`
		District     string `json:"district"`
		Upazila      string `json:"upazila"`
	}
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	id := identity(c)
	res, err := a.users.UpdateProfile(c.Request.Context(), user.UpdateProfileRequest{
		ActorID:      id.UserID,
		Name:         p.Name,
		Phone:        p.Phone,
		ProfileImage: p.ProfileImage,
		Country:      p.Country,
		PostalCode:   p.PostalCode,
		Division:     p.Division,
		District:     p.District,
		Upazila:      p.Upazila,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: res.AccessToken})
}

func (a *API) changeUserRole(c *gin.Context) {
	var p struct {
		UserID int64  `json:"userId"`
		Role   string `json:"role"`
	}
	if err := c.ShouldBindJSON(&p); err != nil {
		a.fail(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	res, err := a.users.ChangeRole(c.Request.Context(), user.ChangeRoleRequest{
		UserID: p.UserID,
		Role:   p.Role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(*res))
}

func (a *API) deleteUser(c *gin.Context) {
	res, err := a.users.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(*res))
}
