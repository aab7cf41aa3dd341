package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/aspirecraft/enrolment/core"
	"github.com/aspirecraft/enrolment/core/enrolment"
	"github.com/aspirecraft/enrolment/services/metrics"
)

const submitTimeout = time.Minute

type sessionApi struct {
	conf     *core.Config
	ctrl     *enrolment.Controller
	sessions enrolment.SessionRepository
	renderer enrolment.Renderer
	metrics  *metrics.Metrics
}

func registerSessionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := sessionApi{
		conf:     deps.Conf,
		ctrl:     deps.Controller,
		sessions: deps.Sessions,
		renderer: deps.Renderer,
		metrics:  deps.Metrics,
	}

	// un-authed endpoints
	g.POST("/sessions", api.create)

	// authed endpoints
	sg := g.Group("/session", jwt, sessionMiddleware)
	sg.GET("", api.retrieve)
	sg.DELETE("", api.destroy)
	sg.PATCH("/fields", api.setFields)
	sg.PUT("/subject-areas", api.setSubjectAreas)
	sg.PATCH("/subforms", api.setSubFields)
	sg.PUT("/signature", api.setSignature)
	sg.POST("/uploads/:field", api.upload)
	sg.POST("/next", api.next)
	sg.POST("/back", api.back)
	sg.POST("/submit", api.submit)
	sg.GET("/document", api.document)
}

// apply reduces evs in order, collecting every field error before failing.
// Any other error stops at the failing event.
func (api *sessionApi) apply(ctx echo.Context, evs ...enrolment.Event) error {
	var view enrolment.StepView
	err := api.sessions.Do(contextSessionID(ctx), func(st *enrolment.State) error {
		var fields []core.FieldError
		for _, ev := range evs {
			err := api.ctrl.Reduce(ctx.Request().Context(), st, ev)
			if err == nil {
				continue
			}
			vErr, ok := core.AsValidationError(err)
			if !ok {
				return err
			}
			fields = append(fields, vErr.Fields...)
		}
		if len(fields) > 0 {
			return core.NewValidationError(nil, fields...)
		}
		view = api.ctrl.View(st)
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

// Handlers

func (api *sessionApi) create(ctx echo.Context) error {
	st, err := api.sessions.Create()
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	api.metrics.SessionsChanged(1)

	token, err := GenerateToken(api.conf, st.ID)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, sessionResponse{Token: token, View: api.ctrl.View(st)})
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	return api.apply(ctx)
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	if err := api.sessions.Delete(contextSessionID(ctx)); err != nil {
		return err
	}
	api.metrics.SessionsChanged(-1)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) setFields(ctx echo.Context) error {
	var data fieldsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to fieldsRequest")
	}
	return api.apply(ctx, data.events()...)
}

func (api *sessionApi) setSubjectAreas(ctx echo.Context) error {
	var data subjectAreasRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to subjectAreasRequest")
	}
	return api.apply(ctx, data.event())
}

func (api *sessionApi) setSubFields(ctx echo.Context) error {
	var data subFieldsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to subFieldsRequest")
	}
	return api.apply(ctx, data.events()...)
}

func (api *sessionApi) setSignature(ctx echo.Context) error {
	var data signatureRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to signatureRequest")
	}
	ev, err := data.event()
	if err != nil {
		return err
	}
	return api.apply(ctx, ev)
}

func (api *sessionApi) upload(ctx echo.Context) error {
	field := enrolment.Field(ctx.Param("field"))
	if spec, ok := enrolment.Spec(field); !ok || spec.Kind != enrolment.KindUploads {
		return errUnknownUploadTo
	}
	files, err := bindUploads(ctx)
	if err != nil {
		return err
	}
	return api.apply(ctx, enrolment.FilesUploaded{Field: field, Files: files})
}

func (api *sessionApi) next(ctx echo.Context) error {
	return api.apply(ctx, enrolment.NextClicked{})
}

func (api *sessionApi) back(ctx echo.Context) error {
	return api.apply(ctx, enrolment.BackClicked{})
}

func (api *sessionApi) submit(ctx echo.Context) error {
	// the dispatch outlives a client disconnect
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request().Context()), submitTimeout)
	defer cancel()

	var view enrolment.StepView
	err := api.sessions.Do(contextSessionID(ctx), func(st *enrolment.State) error {
		if err := api.ctrl.Reduce(sendCtx, st, enrolment.SubmitClicked{}); err != nil {
			return err
		}
		view = api.ctrl.View(st)
		return nil
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, view)
}

// document renders the review document as it would be sent.
func (api *sessionApi) document(ctx echo.Context) error {
	var rendered core.Attachment
	err := api.sessions.Do(contextSessionID(ctx), func(st *enrolment.State) error {
		if st.Step < enrolment.StepReview {
			return enrolment.ErrNotOnReview
		}
		doc, err := api.ctrl.Document(st)
		if err != nil {
			return err
		}
		rendered, err = api.renderer.Render(doc)
		return errors.Wrap(err, "rendering document")
	})
	if err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+rendered.Filename+`"`)
	return ctx.Blob(http.StatusOK, rendered.ContentType, rendered.Content)
}
