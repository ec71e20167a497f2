package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Neyfan/zama-dca-bot-batching/internal/domain"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/logger"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/observability"
	"github.com/Neyfan/zama-dca-bot-batching/pkg/xresponse"
)

const (
	defaultOutcomeLimit = 50
	maxOutcomeLimit     = 1000
)

// OrderHandler handles order intake and inspection requests
type OrderHandler struct {
	intake domain.OrderIntake
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(intake domain.OrderIntake) *OrderHandler {
	return &OrderHandler{intake: intake}
}

// CreateOrder validates the four order fields and enqueues the order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req domain.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid order request body",
			logger.String("trace_id", observability.GetTraceID(c)),
			logger.ErrorField(err),
		)
		xresponse.BadRequest(c, "Invalid request format")
		return
	}

	order, err := h.intake.SubmitOrder(c.Request.Context(), req)
	if err != nil {
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			xresponse.ValidationError(c, "Missing fields", xresponse.FieldError{
				Field:   validationErr.Field,
				Message: validationErr.Msg,
			})
			return
		}

		observability.RecordSystemError(c, "enqueue_failed", "order_handler", err)
		xresponse.InternalServerError(c, "Failed to enqueue order")
		return
	}

	xresponse.Success(c, "Order queued", order)
}

// ListOrders returns the pending queue in FIFO order.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue": h.intake.PendingOrders()})
}

// ListOutcomes returns recently journaled outcomes, newest first.
func (h *OrderHandler) ListOutcomes(c *gin.Context) {
	limit := defaultOutcomeLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			xresponse.ValidationError(c, "Invalid query parameter", xresponse.FieldError{
				Field:   "limit",
				Message: "must be a positive integer",
			})
			return
		}
		limit = parsed
	}
	if limit > maxOutcomeLimit {
		limit = maxOutcomeLimit
	}

	outcomes, err := h.intake.RecentOutcomes(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, domain.ErrJournalDisabled) {
			xresponse.NotFound(c, "Outcome journal is disabled")
			return
		}
		observability.RecordSystemError(c, "journal_read", "order_handler", err)
		xresponse.InternalServerError(c, "Failed to load outcomes")
		return
	}

	xresponse.Success(c, "Outcomes retrieved", gin.H{
		"outcomes": outcomes,
		"count":    len(outcomes),
	})
}
