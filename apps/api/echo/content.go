package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/syllabus/core/content"
)

type (
	SubjectsResponse struct {
		Subjects []content.Subject `json:"subjects"`
	}

	CheckSubjectResponse struct {
		HasSections bool `json:"hasSections"`
	}

	CheckSectionResponse struct {
		HasTopics bool `json:"hasTopics"`
	}
)

type contentAPI struct {
	svc      content.Service
	validate *validator.Validate
}

func registerContentAPI(g *echo.Group, svc content.Service, validate *validator.Validate) {
	api := contentAPI{svc: svc, validate: validate}

	// reads are public
	g.GET("/subjects", api.querySubjects)
	g.GET("/subjects/:id/check", api.checkSubject)
	g.GET("/sections/:id/check", api.checkSection)

	ag := g.Group("", requireAuth)
	ag.POST("/subjects", api.createSubject)
	ag.PUT("/subjects/:id", api.updateSubject)
	ag.DELETE("/subjects/:id", api.destroySubject)

	ag.POST("/subjects/:id/sections", api.createSection)
	ag.PUT("/sections/:id", api.updateSection)
	ag.DELETE("/sections/:id", api.destroySection)

	ag.POST("/sections/:id/topics", api.createTopic)
	ag.PUT("/topics/:id", api.updateTopic)
	ag.DELETE("/topics/:id", api.destroyTopic)
}

func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func success(ctx echo.Context, msg string) error {
	return ctx.JSON(http.StatusOK, MessageResponse{Message: msg})
}

// Subjects

func (api contentAPI) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	if subjects == nil {
		subjects = []content.Subject{}
	}
	return ctx.JSON(http.StatusOK, SubjectsResponse{Subjects: subjects})
}

func (api contentAPI) createSubject(ctx echo.Context) error {
	var data content.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	subj, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api contentAPI) updateSubject(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data content.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if _, err = api.svc.UpdateSubject(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return success(ctx, "Subject updated successfully")
}

func (api contentAPI) checkSubject(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	hasSections, err := api.svc.HasSections(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CheckSubjectResponse{HasSections: hasSections})
}

func (api contentAPI) destroySubject(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSubject(ctx.Request().Context(), id); err != nil {
		return err
	}
	return success(ctx, "Subject deleted successfully")
}

// Sections

func (api contentAPI) createSection(ctx echo.Context) error {
	subjectID, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data content.NewSection
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	sect, err := api.svc.CreateSection(ctx.Request().Context(), subjectID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sect)
}

func (api contentAPI) updateSection(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data content.NewSection
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if _, err = api.svc.UpdateSection(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return success(ctx, "Section updated successfully")
}

func (api contentAPI) checkSection(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	hasTopics, err := api.svc.HasTopics(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CheckSectionResponse{HasTopics: hasTopics})
}

func (api contentAPI) destroySection(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSection(ctx.Request().Context(), id); err != nil {
		return err
	}
	return success(ctx, "Section deleted successfully")
}

// Topics

func (api contentAPI) createTopic(ctx echo.Context) error {
	sectionID, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data content.NewTopic
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	topic, err := api.svc.CreateTopic(ctx.Request().Context(), sectionID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, topic)
}

func (api contentAPI) updateTopic(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	var data content.NewTopic
	if err = ctx.Bind(&data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if _, err = api.svc.UpdateTopic(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return success(ctx, "Topic updated successfully")
}

func (api contentAPI) destroyTopic(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteTopic(ctx.Request().Context(), id); err != nil {
		return err
	}
	return success(ctx, "Topic deleted successfully")
}
