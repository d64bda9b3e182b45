package api

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ppiankov/snapmed/internal/apperr"
	"github.com/ppiankov/snapmed/internal/auth"
	"github.com/ppiankov/snapmed/internal/model"
	"github.com/ppiankov/snapmed/internal/validate"
)

// Response messages
const (
	msgHistorySaved      = "Medication history saved successfully"
	msgHistorySaveFailed = "Failed to save medication history"
	msgHistoryRetrieved  = "Medication history retrieved successfully"
	msgHistoryReadFailed = "Failed to retrieve medication history"
	msgNotAuthenticated  = "User not authenticated"
)

type analyzeResponse struct {
	Lines     []string `json:"lines"`
	DrugInfo  any      `json:"drugInfo"`
	HistoryID string   `json:"historyId,omitempty"`
}

type historySavedResponse struct {
	Message   string `json:"message"`
	HistoryID string `json:"historyId"`
}

type historyListResponse struct {
	Message   string                `json:"message"`
	Histories []model.HistoryRecord `json:"histories"`
}

type healthResponse struct {
	Status         string   `json:"status"`
	Environment    string   `json:"environment"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:         "ok",
		Environment:    s.config.Environment,
		AllowedOrigins: s.config.Server.AllowedOrigins,
	})
}

// analyze handles POST /analyze-base64. The pipeline is detached from client
// cancellation; an authenticated caller's result is appended to history when
// auto-save is on.
func (s *Server) analyze(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	image, err := validate.ImageRequest(body)
	if err != nil {
		return s.errorJSON(c, "error", err)
	}

	ctx := context.WithoutCancel(c.Request().Context())
	result, err := s.analyzer.Enrich(ctx, image)
	if err != nil {
		return s.errorJSON(c, "error", err)
	}

	resp := analyzeResponse{Lines: result.Lines, DrugInfo: model.NoDrugInfoMessage}
	if result.DrugInfo != nil {
		resp.DrugInfo = result.DrugInfo
	}

	if owner, ok := auth.OwnerFrom(c); ok && s.config.History.AutoSave && s.history != nil {
		id, err := s.history.Append(ctx, owner, result.Lines, result.DrugInfo)
		if err != nil {
			s.logger.WithError(err).WithField("owner", owner).Warn("auto-save failed")
		} else {
			resp.HistoryID = id
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) saveHistory(c echo.Context) error {
	owner, ok := auth.OwnerFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": msgNotAuthenticated})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	payload, err := validate.HistoryRequest(body)
	if err != nil {
		return s.errorJSON(c, "message", err)
	}

	id, err := s.history.Append(c.Request().Context(), owner, payload.Lines, payload.DrugInfo)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInvalidInput {
			return s.errorJSON(c, "message", err)
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": msgHistorySaveFailed})
	}

	return c.JSON(http.StatusCreated, historySavedResponse{Message: msgHistorySaved, HistoryID: id})
}

// listHistory handles GET /api/history. Store read faults already arrive as an
// empty list; a panic below is the only path to the 500.
func (s *Server) listHistory(c echo.Context) (err error) {
	owner, ok := auth.OwnerFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, historyListResponse{Message: msgNotAuthenticated, Histories: []model.HistoryRecord{}})
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("history read panicked")
			err = c.JSON(http.StatusInternalServerError, historyListResponse{Message: msgHistoryReadFailed, Histories: []model.HistoryRecord{}})
		}
	}()

	records := s.history.ListByOwner(c.Request().Context(), owner)
	if records == nil {
		records = []model.HistoryRecord{}
	}
	return c.JSON(http.StatusOK, historyListResponse{Message: msgHistoryRetrieved, Histories: records})
}

func (s *Server) checkSession(c echo.Context) error {
	cred := auth.CredentialFrom(c)
	if cred.Empty() {
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"message":         "Not authenticated",
			"isAuthenticated": false,
		})
	}

	owner, err := s.gate.Resolve(c.Request().Context(), cred)
	if err != nil {
		s.logger.WithError(err).Debug("session check rejected")
		auth.ClearCookies(c)
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"message":         "Invalid session",
			"isAuthenticated": false,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message":         "Session is valid",
		"isAuthenticated": true,
		"userId":          owner,
	})
}

// logout ends the session at the gate when possible and always clears the cookies
func (s *Server) logout(c echo.Context) error {
	cred := auth.CredentialFrom(c)
	if !cred.Empty() {
		if err := s.gate.Invalidate(c.Request().Context(), cred); err != nil {
			s.logger.WithError(err).Warn("session invalidation failed")
		}
	}
	auth.ClearCookies(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
