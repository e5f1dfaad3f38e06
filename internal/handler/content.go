package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"rewards-ledger/internal/model"
)

// Submissions is what ContentHandler needs from the submission service.
type Submissions interface {
	Submit(ctx context.Context, accountID int64, platform, videoURL, description string) (*model.ContentSubmission, error)
	List(ctx context.Context, accountID int64) ([]*model.ContentSubmission, error)
}

// ContentHandler handles content submissions by their owners.
type ContentHandler struct {
	submissions Submissions
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(submissions Submissions) *ContentHandler {
	return &ContentHandler{submissions: submissions}
}

// SubmitRequest is the body of POST /v1/submissions.
type SubmitRequest struct {
	Platform    string `json:"platform" validate:"required,max=20"`
	VideoURL    string `json:"video_url" validate:"required,url,max=2048"`
	Description string `json:"description" validate:"max=2000"`
}

// Submit handles POST /v1/submissions.
func (h *ContentHandler) Submit(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	var req SubmitRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	sub, err := h.submissions.Submit(c.Request().Context(), id, req.Platform, req.VideoURL, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sub)
}

// List handles GET /v1/submissions.
func (h *ContentHandler) List(c echo.Context) error {
	id, err := AccountID(c)
	if err != nil {
		return err
	}
	subs, err := h.submissions.List(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return list(c, subs)
}
