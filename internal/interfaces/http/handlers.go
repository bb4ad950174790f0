package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/httplouis/travelink-workflow/internal/application/service"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
	"github.com/httplouis/travelink-workflow/internal/workflow"
)

// minCommentLength is enforced on reject and return actions so the
// requester always gets a usable explanation
const minCommentLength = 10

// Handlers contains all HTTP request handlers
type Handlers struct {
	requestService      service.RequestService
	notificationService service.NotificationService
	logger              Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requestService service.RequestService,
	notificationService service.NotificationService,
	logger Logger,
) *Handlers {
	return &Handlers{
		requestService:      requestService,
		notificationService: notificationService,
		logger:              logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitRequestPayload is the submission body. Budget amounts travel as
// strings to avoid float rounding on the wire.
type SubmitRequestPayload struct {
	RequestType   string `json:"request_type" binding:"required,oneof=travel_order seminar"`
	RequestNumber string `json:"request_number" binding:"required"`

	RequesterID       string `json:"requester_id" binding:"required,uuid"`
	RequesterIsHead   bool   `json:"requester_is_head"`
	DepartmentID      string `json:"department_id" binding:"required,uuid"`
	SubmittedByUserID string `json:"submitted_by_user_id" binding:"required,uuid"`
	IsRepresentative  bool   `json:"is_representative"`

	Participants []entity.Participant `json:"participants"`
	HeadIncluded bool                 `json:"head_included"`

	RequiresBudget   bool                 `json:"requires_budget"`
	TotalBudget      string               `json:"total_budget"`
	ExpenseBreakdown []entity.ExpenseItem `json:"expense_breakdown"`

	NeedsVehicle bool   `json:"needs_vehicle"`
	VehicleType  string `json:"vehicle_type"`
	NeedsRental  bool   `json:"needs_rental"`

	Destination     string `json:"destination"`
	IsInternational bool   `json:"is_international"`
}

// ActionPayload is the body for POST /requests/:id/action
type ActionPayload struct {
	ActorID   string `json:"actor_id" binding:"required,uuid"`
	Action    string `json:"action" binding:"required,oneof=approve reject return"`
	Comments  string `json:"comments"`
	Signature string `json:"signature"`

	BudgetModification string `json:"budget_modification"`

	ReturnToRequester          bool   `json:"return_to_requester"`
	NextApproverID             string `json:"next_approver_id"`
	NextApproverRole           string `json:"next_approver_role"`
	SendForPaymentConfirmation bool   `json:"send_for_payment_confirmation"`
	PaymentConfirmed           bool   `json:"payment_confirmed"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// SubmitRequest handles POST /api/v1/requests
func (h *Handlers) SubmitRequest(c *gin.Context) {
	var payload SubmitRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Error("Invalid submission payload", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	req, err := payload.toEntity()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	result, err := h.requestService.Submit(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Submission failed", "request_number", payload.RequestNumber, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to submit request",
		})
		return
	}

	if !result.Validation.Valid {
		c.JSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Data:    gin.H{"validation_errors": result.Validation.Errors},
			Error:   "submission failed validation",
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data: gin.H{
			"request":   result.Request,
			"analytics": result.Analytics,
		},
	})
}

func (p *SubmitRequestPayload) toEntity() (*entity.TravelRequest, error) {
	requesterID, err := uuid.Parse(p.RequesterID)
	if err != nil {
		return nil, errors.New("invalid requester_id")
	}
	departmentID, err := uuid.Parse(p.DepartmentID)
	if err != nil {
		return nil, errors.New("invalid department_id")
	}
	submittedBy, err := uuid.Parse(p.SubmittedByUserID)
	if err != nil {
		return nil, errors.New("invalid submitted_by_user_id")
	}

	totalBudget := decimal.Zero
	if p.TotalBudget != "" {
		if totalBudget, err = decimal.NewFromString(p.TotalBudget); err != nil {
			return nil, errors.New("invalid total_budget")
		}
	}

	return &entity.TravelRequest{
		ID:                uuid.New(),
		RequestType:       p.RequestType,
		RequestNumber:     p.RequestNumber,
		RequesterID:       requesterID,
		RequesterIsHead:   p.RequesterIsHead,
		DepartmentID:      departmentID,
		SubmittedByUserID: submittedBy,
		IsRepresentative:  p.IsRepresentative,
		Participants:      p.Participants,
		HeadIncluded:      p.HeadIncluded,
		RequiresBudget:    p.RequiresBudget,
		TotalBudget:       totalBudget,
		ExpenseBreakdown:  p.ExpenseBreakdown,
		NeedsVehicle:      p.NeedsVehicle,
		VehicleType:       p.VehicleType,
		NeedsRental:       p.NeedsRental,
		Destination:       p.Destination,
		IsInternational:   p.IsInternational,
		Status:            wf.StatusDraft,
	}, nil
}

// ActOnRequest handles POST /api/v1/requests/:id/action
func (h *Handlers) ActOnRequest(c *gin.Context) {
	requestID, ok := h.parseRequestID(c)
	if !ok {
		return
	}

	var payload ActionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Error("Invalid action payload", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	if payload.Action != service.ActionApprove &&
		len(strings.TrimSpace(payload.Comments)) < minCommentLength {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "comments of at least 10 characters are required when rejecting or returning a request",
		})
		return
	}

	actorID, err := uuid.Parse(payload.ActorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid actor_id",
		})
		return
	}

	input, err := payload.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	result, err := h.requestService.Act(c.Request.Context(), requestID, actorID, input)
	if err != nil {
		h.respondActionError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"request":         result.Request,
			"previous_status": result.PreviousStatus,
			"next_status":     result.Request.Status,
		},
	})
}

func (p *ActionPayload) toInput() (service.ActionInput, error) {
	input := service.ActionInput{
		Action:    p.Action,
		Comments:  p.Comments,
		Signature: p.Signature,
		Params: workflow.ActionParams{
			ReturnToRequester:          p.ReturnToRequester,
			NextApproverRole:           wf.Role(p.NextApproverRole),
			SendForPaymentConfirmation: p.SendForPaymentConfirmation,
			PaymentConfirmed:           p.PaymentConfirmed,
		},
	}

	if p.NextApproverID != "" {
		id, err := uuid.Parse(p.NextApproverID)
		if err != nil {
			return input, errors.New("invalid next_approver_id")
		}
		input.Params.NextApproverID = &id
	}

	if p.BudgetModification != "" {
		amount, err := decimal.NewFromString(p.BudgetModification)
		if err != nil {
			return input, errors.New("invalid budget_modification")
		}
		input.BudgetModification = &amount
	}

	return input, nil
}

func (h *Handlers) respondActionError(c *gin.Context, requestID uuid.UUID, err error) {
	switch {
	case errors.Is(err, wf.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, Response{
			Success: false,
			Error:   "actor is not authorized for the current stage",
		})
	case errors.Is(err, wf.ErrTerminalStatus):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   "request is already in a terminal state",
		})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, Response{
			Success: false,
			Error:   "request was modified concurrently; reload and retry",
		})
	default:
		h.logger.Error("Action failed", "id", requestID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to process action",
		})
	}
}

// GetRequest handles GET /api/v1/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	requestID, ok := h.parseRequestID(c)
	if !ok {
		return
	}

	req, err := h.requestService.Get(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "request not found",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    req,
	})
}

// GetHistory handles GET /api/v1/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	requestID, ok := h.parseRequestID(c)
	if !ok {
		return
	}

	entries, err := h.requestService.History(c.Request.Context(), requestID)
	if err != nil {
		h.logger.Error("Failed to load history", "id", requestID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to load request history",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// GetAnalytics handles GET /api/v1/requests/:id/analytics
func (h *Handlers) GetAnalytics(c *gin.Context) {
	requestID, ok := h.parseRequestID(c)
	if !ok {
		return
	}

	analytics, err := h.requestService.Analytics(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "request not found",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    analytics,
	})
}

// ListNotifications handles GET /api/v1/notifications. With a role
// query parameter it returns that role's inbox; without one it returns
// the pending delivery queue.
func (h *Handlers) ListNotifications(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "invalid limit",
			})
			return
		}
		limit = parsed
	}

	var (
		intents interface{}
		err     error
	)
	if role := c.Query("role"); role != "" {
		intents, err = h.notificationService.ListForRole(c.Request.Context(), wf.Role(role), limit)
	} else {
		intents, err = h.notificationService.ListPending(c.Request.Context(), limit)
	}
	if err != nil {
		h.logger.Error("Failed to list notifications", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to list notifications",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    intents,
	})
}

// MarkNotificationRead handles POST /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid notification ID",
		})
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to mark notification read",
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

func (h *Handlers) parseRequestID(c *gin.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Error("Invalid request ID", "id", idStr, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request ID",
		})
		return uuid.Nil, false
	}
	return id, true
}
