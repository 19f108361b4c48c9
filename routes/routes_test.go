package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"permit-portal-api/controllers"
	"permit-portal-api/middleware"
	"permit-portal-api/models"
	"permit-portal-api/repository"
	"permit-portal-api/services"
	"permit-portal-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var secret = []byte("routes-test-secret")

type harness struct {
	t       *testing.T
	router  *gin.Engine
	records *repository.MemoryRecordStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	records := repository.NewMemoryRecordStore()
	records.PutApplication(models.Application{ApplicationID: 1, Title: "Building Permit"})
	artifacts, err := storage.NewLocalArtifactStore(t.TempDir(), "/files")
	require.NoError(t, err)

	locker := services.NewLocalLocker(time.Second)
	lifecycle := services.NewLifecycleService(records, locker, services.DefaultDeadlineWindows(), logger)
	workflow := controllers.NewWorkflowController(controllers.WorkflowDeps{
		Intake:    services.NewSubmissionIntake(records, artifacts, logger),
		Lifecycle: lifecycle,
		Documents: services.NewDocumentSetManager(records, artifacts, lifecycle, logger),
		Deletion:  services.NewDeletionService(records, artifacts, locker, logger),
		Artifacts: artifacts,
		Location:  time.UTC,
		Logger:    logger,
	})

	router := gin.New()
	SetupRoutes(router, Dependencies{Workflow: workflow, JWTSecret: secret})
	return &harness{t: t, router: router, records: records}
}

func (h *harness) token(userID, roleID int) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID: userID,
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(secret)
	require.NoError(h.t, err)
	return token
}

func (h *harness) do(method, path, token, contentType string, body *bytes.Buffer) (int, map[string]interface{}) {
	h.t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	}
	return w.Code, decoded
}

func (h *harness) json(method, path, token string, payload interface{}) (int, map[string]interface{}) {
	raw, err := json.Marshal(payload)
	require.NoError(h.t, err)
	return h.do(method, path, token, "application/json", bytes.NewBuffer(raw))
}

func (h *harness) multipart(path, token string, fields map[string]string, files ...string) (int, map[string]interface{}) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(h.t, mw.WriteField(k, v))
	}
	for _, name := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(h.t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(h.t, err)
	}
	require.NoError(h.t, mw.Close())
	return h.do(http.MethodPost, path, token, mw.FormDataContentType(), body)
}

func TestSubmissionWorkflowOverHTTP(t *testing.T) {
	h := newHarness(t)
	applicant := h.token(7, middleware.RoleApplicant)
	stranger := h.token(8, middleware.RoleApplicant)
	officer := h.token(100, middleware.RoleOfficer)

	code, body := h.multipart("/api/v1/submissions", applicant, map[string]string{
		"application_id": "1",
		"full_name":      "Somchai Jaidee",
		"purpose":        "Two-storey house",
	}, "site-plan.pdf", "title-deed.pdf")
	require.Equal(t, http.StatusCreated, code, body)
	submission := body["submission"].(map[string]interface{})
	id := int(submission["submission_id"].(float64))
	assert.Equal(t, float64(7), submission["user_id"])
	base := fmt.Sprintf("/api/v1/submissions/%d", id)

	code, body = h.do(http.MethodGet, base+"/history", applicant, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(models.StatusSubmitted), body["current_status"])

	code, body = h.do(http.MethodGet, base+"/history", stranger, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["type"])

	code, _ = h.json(http.MethodPost, base+"/transitions", applicant, map[string]interface{}{"status": 2})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = h.json(http.MethodPost, base+"/transitions", officer, map[string]interface{}{"status": 3})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", body["type"])

	code, body = h.json(http.MethodPost, base+"/transitions", officer, map[string]interface{}{"status": "archived"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", body["type"])

	code, body = h.json(http.MethodPost, base+"/transitions", officer, map[string]interface{}{
		"status":            "needs_revision",
		"revision_deadline": "2030-01-15T17:00",
		"revision_comment":  "Title deed scan is unreadable.",
	})
	require.Equal(t, http.StatusOK, code, body)
	history := body["history"].(map[string]interface{})
	assert.Equal(t, "Revision required. Please submit the revised application by 2030-01-15T17:00.", history["remarks"])

	code, body = h.json(http.MethodPost, base+"/transitions", officer, map[string]interface{}{"status": 4})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", body["type"])

	code, body = h.multipart(base+"/resubmit", applicant, nil, "title-deed-v2.pdf")
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["documents"], 1)
	resubmitted := body["history"].(map[string]interface{})
	assert.True(t, strings.HasSuffix(resubmitted["remarks"].(string), "1 document(s) resubmitted."))

	code, body = h.do(http.MethodGet, base+"/documents", applicant, "", nil)
	require.Equal(t, http.StatusOK, code)
	docs := body["documents"].([]interface{})
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]interface{})
	assert.Equal(t, "title-deed-v2.pdf", doc["file_name"])
	assert.True(t, strings.HasPrefix(doc["url"].(string), fmt.Sprintf("/files/%d/", id)))

	docPath := fmt.Sprintf("/api/v1/documents/%d", int(doc["document_id"].(float64)))
	code, body = h.do(http.MethodGet, docPath, applicant, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, doc["url"], body["document"].(map[string]interface{})["url"])
	code, _ = h.do(http.MethodGet, docPath, stranger, "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = h.do(http.MethodGet, base+"/comments", applicant, "", nil)
	require.Equal(t, http.StatusOK, code)
	comments := body["comments"].([]interface{})
	require.Len(t, comments, 1)
	assert.Equal(t, "Title deed scan is unreadable.", comments[0].(map[string]interface{})["revision_comment"])

	code, _ = h.do(http.MethodDelete, base, stranger, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = h.do(http.MethodDelete, base, officer, "", nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = h.do(http.MethodGet, base+"/history", officer, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCompleteInspectionRequiresInspecting(t *testing.T) {
	h := newHarness(t)
	applicant := h.token(7, middleware.RoleApplicant)
	inspector := h.token(50, middleware.RoleInspector)

	code, body := h.multipart("/api/v1/submissions", applicant, map[string]string{"application_id": "1"}, "plan.pdf")
	require.Equal(t, http.StatusCreated, code, body)
	id := int(body["submission"].(map[string]interface{})["submission_id"].(float64))

	code, body = h.do(http.MethodPost, fmt.Sprintf("/api/v1/inspections/%d/complete", id), inspector, "", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", body["type"])

	code, _ = h.do(http.MethodPost, fmt.Sprintf("/api/v1/inspections/%d/complete", id), applicant, "", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestBulkDeletionEndpoints(t *testing.T) {
	h := newHarness(t)
	officer := h.token(100, middleware.RoleOfficer)

	for _, owner := range []int{7, 7, 8} {
		code, body := h.multipart("/api/v1/submissions", officer, map[string]string{
			"application_id": "1",
			"user_id":        fmt.Sprint(owner),
		}, "plan.pdf")
		require.Equal(t, http.StatusCreated, code, body)
	}

	code, body := h.do(http.MethodDelete, "/api/v1/users/7/submissions", officer, "", nil)
	require.Equal(t, http.StatusOK, code, body)
	report := body["report"].(map[string]interface{})
	assert.Len(t, report["deleted"], 2)

	code, body = h.do(http.MethodDelete, "/api/v1/applications/1/submissions", officer, "", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["report"].(map[string]interface{})["deleted"], 1)

	code, body = h.do(http.MethodDelete, "/api/v1/applications/99/submissions", officer, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["type"])
}

func TestGetDocumentHidesOtherOwnersBeforeResolvingLink(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sub := models.Submission{ApplicationID: 1, OwnerID: 7, CurrentStatus: models.StatusSubmitted}
	require.NoError(t, h.records.CreateSubmission(ctx, &sub))
	subID := sub.SubmissionID
	// A link this artifact store cannot resolve.
	docs := []models.Document{{FileName: "plan.pdf", FileType: "pdf", FileLink: "s3://elsewhere/plan.pdf", SubmissionID: &subID}}
	require.NoError(t, h.records.InsertDocuments(ctx, docs))
	listed, err := h.records.ListDocuments(ctx, subID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	docPath := fmt.Sprintf("/api/v1/documents/%d", listed[0].DocumentID)

	code, body := h.do(http.MethodGet, docPath, h.token(8, middleware.RoleApplicant), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["type"])

	code, _ = h.do(http.MethodGet, docPath, h.token(1, middleware.RoleOfficer), "", nil)
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestUnauthenticatedAndUnknownRoutes(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(http.MethodGet, "/api/v1/submissions/1/history", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", body["type"])

	code, body = h.do(http.MethodGet, "/api/v1/applications/1", h.token(7, middleware.RoleApplicant), "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Building Permit", body["application"].(map[string]interface{})["title"])

	code, _ = h.do(http.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = h.do(http.MethodGet, "/nope", "", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
