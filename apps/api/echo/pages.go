package echoapi

import (
	"html/template"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/syllabus/core/content"
	"github.com/trezcool/syllabus/frontend/console"
	"github.com/trezcool/syllabus/frontend/render"
)

var errSubjectPageNotFound = echo.NewHTTPError(http.StatusNotFound, "Subject not found")

type pages struct {
	svc      content.Service
	renderer *render.Renderer
	nowFunc  func() time.Time
}

func registerPages(e *echo.Echo, auth authAPI, svc content.Service, renderer *render.Renderer) {
	p := pages{svc: svc, renderer: renderer, nowFunc: time.Now}

	e.GET("/", p.index)
	e.GET("/subject/:name", p.subject)
	e.GET("/static/css/style.css", p.stylesheet)

	e.GET("/login", auth.loginPage)
	e.POST("/login", auth.loginForm)
	e.GET("/logout", auth.logoutPage)

	ag := e.Group("/admin", requireLogin)
	ag.GET("", func(ctx echo.Context) error {
		return ctx.Redirect(http.StatusFound, "/admin/dashboard")
	})
	ag.GET("/dashboard", p.dashboard)
	ag.GET("/subjects", p.subjects)
}

func (p pages) html(ctx echo.Context, page string, err error) error {
	if err != nil {
		return err
	}
	return ctx.HTML(http.StatusOK, page)
}

func (p pages) index(ctx echo.Context) error {
	subjects, err := p.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	page, err := p.renderer.Index(render.IndexPage{Title: "Subjects", Subjects: subjects})
	return p.html(ctx, string(page), err)
}

func (p pages) subject(ctx echo.Context) error {
	subj, err := p.svc.GetSubjectByName(ctx.Request().Context(), ctx.Param("name"))
	if err != nil {
		if content.IsNotFound(err) {
			return errSubjectPageNotFound
		}
		return err
	}
	page, err := p.renderer.SubjectPage(render.SubjectPage{Subject: subj})
	return p.html(ctx, string(page), err)
}

func (p pages) stylesheet(ctx echo.Context) error {
	css, err := p.renderer.CSS()
	if err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, "text/css; charset=utf-8", []byte(css))
}

// dashboard serves the admin shell; the hierarchy is loaded through the API.
func (p pages) dashboard(ctx echo.Context) error {
	body, err := p.renderer.Message(render.MessageLoading, render.LoadingText)
	if err != nil {
		return err
	}
	page, err := p.renderer.Admin(p.adminPage(ctx, body))
	return p.html(ctx, string(page), err)
}

// subjects serves the admin shell with the hierarchy rendered in place.
func (p pages) subjects(ctx echo.Context) error {
	subjects, err := p.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	var body template.HTML
	if len(subjects) == 0 {
		body, err = p.renderer.Message(render.MessageEmpty, render.EmptyText)
	} else {
		body, err = p.renderer.Hierarchy(subjects)
	}
	if err != nil {
		return err
	}
	page, err := p.renderer.Admin(p.adminPage(ctx, body))
	return p.html(ctx, string(page), err)
}

func (p pages) adminPage(ctx echo.Context, body template.HTML) render.AdminPage {
	return render.AdminPage{
		Title:       console.DefaultTitle,
		Username:    contextPrincipal(ctx).Username,
		LastUpdated: p.nowFunc().Format(render.ClockFormat),
		Query:       ctx.QueryParam("search"),
		Body:        body,
	}
}
