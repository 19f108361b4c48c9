package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDocument returns a document row and a URL to fetch its content from.
// Catalog documents are public to any role; submission documents follow the
// submission's visibility.
func (h *WorkflowController) GetDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.documents.Document(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if doc.SubmissionID != nil {
		if _, ok := h.authorizeSubmission(c, *doc.SubmissionID); !ok {
			return
		}
	}
	url, err := h.documents.LinkURL(c.Request.Context(), doc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"document": documentView{Document: *doc, URL: url},
	})
}
