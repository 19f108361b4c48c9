package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"permit-portal-api/middleware"
	"permit-portal-api/services"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
	"go.uber.org/zap"
)

const problemContentType = middleware.ProblemContentType

// sagaProblem extends the problem body with the failing saga step.
type sagaProblem struct {
	*problems.Problem
	Saga      string `json:"saga"`
	Step      int    `json:"step"`
	StepName  string `json:"step_name"`
	Retryable bool   `json:"retryable"`
}

func newProblem(c *gin.Context, status int, kind, detail string) *problems.Problem {
	return problems.NewStatusProblem(status).
		WithInstance(c.Request.URL.Path).
		WithType(kind).
		WithDetail(detail)
}

func writeProblem(c *gin.Context, status int, kind, detail string) {
	c.Header("Content-Type", problemContentType)
	c.JSON(status, newProblem(c, status, kind, detail))
}

func badRequest(c *gin.Context, detail string) {
	writeProblem(c, http.StatusBadRequest, "validation_error", detail)
}

// respondError maps the service error taxonomy onto problem responses.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, kind := http.StatusInternalServerError, "internal_error"
	detail := "unexpected error; retry the request"

	switch {
	case errors.Is(err, services.ErrNotFound):
		status, kind, detail = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, services.ErrValidation):
		status, kind, detail = http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, services.ErrInvalidTransition):
		status, kind, detail = http.StatusConflict, "invalid_transition", err.Error()
	case errors.Is(err, services.ErrSubmissionBusy):
		status, kind, detail = http.StatusConflict, "submission_busy", "another change to this submission is in progress; retry shortly"
	case errors.Is(err, services.ErrArtifact):
		status, kind, detail = http.StatusBadGateway, "artifact_error", "document storage is unavailable; retry the request"
	case errors.Is(err, services.ErrPersistence):
		kind, detail = "persistence_error", "a storage error occurred; retry the request"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		_ = c.Error(err)
	}

	var sagaErr *services.SagaError
	if errors.As(err, &sagaErr) {
		if status >= http.StatusInternalServerError {
			detail = fmt.Sprintf("%s stopped at step %d (%s); retry the request", sagaErr.Saga, sagaErr.Step, sagaErr.StepName)
		}
		c.Header("Content-Type", problemContentType)
		c.JSON(status, sagaProblem{
			Problem:   newProblem(c, status, kind, detail),
			Saga:      sagaErr.Saga,
			Step:      sagaErr.Step,
			StepName:  sagaErr.StepName,
			Retryable: sagaErr.Retryable(),
		})
		return
	}
	writeProblem(c, status, kind, detail)
}
