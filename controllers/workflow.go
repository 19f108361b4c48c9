package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"permit-portal-api/middleware"
	"permit-portal-api/models"
	"permit-portal-api/services"
	"permit-portal-api/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WorkflowController serves the submission lifecycle endpoints.
type WorkflowController struct {
	intake    *services.SubmissionIntake
	lifecycle *services.LifecycleService
	documents *services.DocumentSetManager
	deletion  *services.DeletionService
	artifacts storage.ArtifactStore
	maxUpload int64
	location  *time.Location
	logger    *zap.Logger
}

type WorkflowDeps struct {
	Intake         *services.SubmissionIntake
	Lifecycle      *services.LifecycleService
	Documents      *services.DocumentSetManager
	Deletion       *services.DeletionService
	Artifacts      storage.ArtifactStore
	MaxUploadBytes int64
	Location       *time.Location
	Logger         *zap.Logger
}

func NewWorkflowController(deps WorkflowDeps) *WorkflowController {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 20 << 20
	}
	return &WorkflowController{
		intake:    deps.Intake,
		lifecycle: deps.Lifecycle,
		documents: deps.Documents,
		deletion:  deps.Deletion,
		artifacts: deps.Artifacts,
		maxUpload: deps.MaxUploadBytes,
		location:  deps.Location,
		logger:    deps.Logger,
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func actorID(c *gin.Context) *int {
	if id, ok := middleware.UserID(c); ok {
		return &id
	}
	return nil
}

// authorizeSubmission loads the submission and hides it from applicants who do
// not own it.
func (h *WorkflowController) authorizeSubmission(c *gin.Context, submissionID int) (*models.Submission, bool) {
	sub, err := h.lifecycle.GetSubmission(c.Request.Context(), submissionID)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	role, _ := middleware.RoleID(c)
	if role == middleware.RoleApplicant {
		userID, _ := middleware.UserID(c)
		if sub.OwnerID != userID {
			respondError(c, h.logger, fmt.Errorf("%w: submission %d", services.ErrNotFound, submissionID))
			return nil, false
		}
	}
	return sub, true
}

// readFiles opens every part of the "files" field. The returned cleanup closes them.
func (h *WorkflowController) readFiles(c *gin.Context) ([]services.NewFile, func(), error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: multipart/form-data within %d bytes is required", services.ErrValidation, h.maxUpload)
	}

	var headers []*multipart.FileHeader
	if form != nil {
		headers = form.File["files"]
	}

	var opened []io.Closer
	cleanup := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	files := make([]services.NewFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("%w: cannot read %q", services.ErrValidation, fh.Filename)
		}
		opened = append(opened, f)
		files = append(files, services.NewFile{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}
	return files, cleanup, nil
}
