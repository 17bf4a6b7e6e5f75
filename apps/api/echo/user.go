package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/user"
)

var errLoginFieldsRequired = errors.New("login_idとpasswordが必要です")

type (
	LoginResponse struct {
		AccessToken string `json:"access_token"`
		UserID      int    `json:"user_id"`
		LoginID     string `json:"login_id"`
	}

	RegisterResponse struct {
		Message string `json:"message"`
		UserID  int    `json:"user_id"`
		LoginID string `json:"login_id"`
	}
)

type userApi struct {
	svc        *user.Service
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:        deps.UserSvc,
		conf:       deps.Conf,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)

	// authed endpoints
	ag.POST("/register", api.register, jwt, adminMiddleware())
	ag.GET("/me", api.me, jwt)
	ag.GET("/verify", api.verify, jwt)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	if ctx.Request().ContentLength == 0 {
		return errNoBody
	}
	var data user.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return core.NewValidationError(errLoginFieldsRequired)
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.LoginID, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{AccessToken: token, UserID: usr.ID, LoginID: usr.LoginID})
}

func (api *userApi) register(ctx echo.Context) error {
	if ctx.Request().ContentLength == 0 {
		return errNoBody
	}
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	return ctx.JSON(http.StatusCreated, RegisterResponse{
		Message: "ユーザーが正常に登録されました",
		UserID:  usr.ID,
		LoginID: usr.LoginID,
	})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) verify(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"valid": true})
}
