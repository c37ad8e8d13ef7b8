package api

import "github.com/starford/pfnbot/internal/models"

// Finding is a cached finding in API responses.
type Finding = models.Finding

// FindingListResponse wraps the full finding list.
type FindingListResponse struct {
	Findings []Finding `json:"findings" validate:"required"`
	Total    int       `json:"total" example:"42" validate:"required"`
}
