package utils

import (
	"fmt"
	"strconv"
	"strings"

	"permit-portal-api/models"
)

var (
	// statusCodeSynonyms lists the spellings collaborators send for each code:
	// the integer, the snake_case key, and the display name.
	statusCodeSynonyms = map[models.StatusCode][]string{
		models.StatusSubmitted:       {"submitted"},
		models.StatusUnderReview:     {"under_review", "reviewing"},
		models.StatusNeedsRevision:   {"needs_revision", "revision", "needs_more_info"},
		models.StatusApproved:        {"approved"},
		models.StatusRejected:        {"rejected"},
		models.StatusPaymentPending:  {"payment_pending"},
		models.StatusPaymentReceived: {"payment_received", "paid"},
		models.StatusPaymentFailed:   {"payment_failed"},
		models.StatusInspecting:      {"inspecting", "inspection_scheduled"},
		models.StatusCompleted:       {"completed", "closed"},
		models.StatusInspected:       {"inspected", "inspection_completed"},
	}
	statusAliasToCode = buildStatusAliasMap()
)

func buildStatusAliasMap() map[string]models.StatusCode {
	aliasMap := make(map[string]models.StatusCode)
	for code, synonyms := range statusCodeSynonyms {
		aliasMap[strconv.Itoa(int(code))] = code
		aliasMap[normalizeStatusCode(code.String())] = code
		for _, alias := range synonyms {
			if normalized := normalizeStatusCode(alias); normalized != "" {
				aliasMap[normalized] = code
			}
		}
	}
	return aliasMap
}

func normalizeStatusCode(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return strings.Join(strings.Fields(normalized), "_")
}

// ParseStatusCode resolves a wire value ("3", "needs_revision", "Needs Revision")
// to its status code.
func ParseStatusCode(raw string) (models.StatusCode, error) {
	key := normalizeStatusCode(raw)
	if key == "" {
		return 0, fmt.Errorf("status is required")
	}
	if code, ok := statusAliasToCode[key]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("unknown status %q", raw)
}

// StatusKey returns the canonical snake_case key for code.
func StatusKey(code models.StatusCode) string {
	if !code.Valid() {
		return ""
	}
	return normalizeStatusCode(code.String())
}

// StatusMatchesCodes reports whether status is one of codes.
func StatusMatchesCodes(status models.StatusCode, codes ...models.StatusCode) bool {
	for _, code := range codes {
		if status == code {
			return true
		}
	}
	return false
}
