package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/syllabus/core"
	"github.com/trezcool/syllabus/core/account"
	"github.com/trezcool/syllabus/frontend/console"
	"github.com/trezcool/syllabus/frontend/render"
)

const (
	// SessionCookie holds the signed session token.
	SessionCookie = "syllabus_session"

	contextPrincipalKey = "principal"
	audience            = "syllabus-admin"
)

// Claims represents the session claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// NewSessionToken signs a session token for username, valid for conf.SessionLifetime.
func NewSessionToken(conf *core.Config, username string, now time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   username,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.SessionLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: username,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseSessionToken(conf *core.Config, token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(
		token, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(conf.SecretKey), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(conf.AppName),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// sessionMiddleware resolves the session cookie, when valid, into the context principal.
// It never rejects a request: see requireAuth & requireLogin.
func sessionMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if cookie, err := ctx.Cookie(SessionCookie); err == nil && cookie.Value != "" {
				if claims, err := parseSessionToken(conf, cookie.Value); err == nil {
					ctx.Set(contextPrincipalKey, core.Principal{Username: claims.Username})
				}
			}
			return next(ctx)
		}
	}
}

// requireAuth rejects API calls without a session.
func requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if contextPrincipal(ctx).IsAnonymous() {
			return errUnauthorized
		}
		return next(ctx)
	}
}

// requireLogin redirects page visits without a session to the login page.
func requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if contextPrincipal(ctx).IsAnonymous() {
			return ctx.Redirect(http.StatusFound, console.LoginRoute)
		}
		return next(ctx)
	}
}

func contextPrincipal(ctx echo.Context) core.Principal {
	p, _ := ctx.Get(contextPrincipalKey).(core.Principal)
	return p
}

type (
	LoginRequest struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Username = core.CleanString(r.Username)
	return validate.Struct(r)
}

type authAPI struct {
	conf     *core.Config
	renderer *render.Renderer
	validate *validator.Validate
	logger   core.Logger
}

func registerAuthAPI(g *echo.Group, api authAPI) {
	g.POST("/login", api.login)
	g.POST("/logout", api.logout)
}

// login starts a session from a JSON body.
func (api authAPI) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.startSession(ctx, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Login successful"})
}

func (api authAPI) logout(ctx echo.Context) error {
	api.endSession(ctx)
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Logout successful"})
}

func (api authAPI) loginPage(ctx echo.Context) error {
	if !contextPrincipal(ctx).IsAnonymous() {
		return ctx.Redirect(http.StatusFound, "/admin/dashboard")
	}
	return api.renderLogin(ctx, http.StatusOK, "", "")
}

// loginForm starts a session from the login form; failures re-render the form.
func (api authAPI) loginForm(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return api.renderLogin(ctx, http.StatusBadRequest, data.Username, "Username and password are required")
	}
	if err := api.startSession(ctx, data); err != nil {
		if err == errAuthenticationFailed {
			return api.renderLogin(ctx, http.StatusUnauthorized, data.Username, "Invalid credentials")
		}
		return err
	}
	return ctx.Redirect(http.StatusFound, "/admin/dashboard")
}

func (api authAPI) logoutPage(ctx echo.Context) error {
	api.endSession(ctx)
	return ctx.Redirect(http.StatusFound, "/")
}

func (api authAPI) renderLogin(ctx echo.Context, code int, username, msg string) error {
	page, err := api.renderer.Login(render.LoginPage{Title: "Login", Username: username, Error: msg})
	if err != nil {
		return err
	}
	return ctx.HTML(code, string(page))
}

func (api authAPI) startSession(ctx echo.Context, data LoginRequest) error {
	if err := account.Authenticate(api.conf.Admin, data.Username, data.Password); err != nil {
		api.logger.Warn("Login failed", map[string]interface{}{"username": data.Username})
		if errors.Cause(err) == account.ErrAuthenticationFailed {
			return errAuthenticationFailed
		}
		return err
	}
	now := time.Now()
	token, err := NewSessionToken(api.conf, data.Username, now)
	if err != nil {
		return errors.Wrap(err, "creating session token")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(api.conf.SessionLifetime),
		HttpOnly: true,
		Secure:   !(api.conf.Debug || api.conf.TestMode),
		SameSite: http.SameSiteLaxMode,
	})
	api.logger.Info("Login successful", core.Principal{Username: data.Username})
	return nil
}

func (api authAPI) endSession(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	if p := contextPrincipal(ctx); !p.IsAnonymous() {
		api.logger.Info("Logout successful", p)
	}
}
