package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"gymbook/internal/app/commands"
	bookingapp "gymbook/internal/app/handlers/booking"
	"gymbook/internal/app/policies"
	"gymbook/internal/app/queries"
	domainbooking "gymbook/internal/domain/booking"
	"gymbook/internal/domain/shared/caldate"
)

var validate = validator.New()

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	Variant        string   `json:"variant" validate:"required,oneof=CLASS TRAINER"`
	ApplicantName  string   `json:"applicant_name"`
	ApplicantEmail string   `json:"applicant_email" validate:"required,email"`
	ApplicantPhone string   `json:"applicant_phone"`
	ClassName      string   `json:"class_name"`
	TrainerID      string   `json:"trainer_id"`
	SessionIDs     []string `json:"session_ids"`
	DurationUnit   string   `json:"duration_unit" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	DurationWeeks  int      `json:"duration_weeks" validate:"gte=0"`
	TotalCents     int64    `json:"total_cents" validate:"gte=0"`
	Currency       string   `json:"currency" validate:"required,len=3"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		CommandID:       uuid.NewString(),
		Variant:         domainbooking.Variant(req.Variant),
		ApplicantName:   req.ApplicantName,
		ApplicantEmail:  req.ApplicantEmail,
		ApplicantPhone:  req.ApplicantPhone,
		ClassName:       req.ClassName,
		TrainerID:       req.TrainerID,
		SessionIDs:      req.SessionIDs,
		DurationUnit:    domainbooking.DurationUnit(req.DurationUnit),
		DurationWeeks:   req.DurationWeeks,
		TotalCents:      req.TotalCents,
		Currency:        req.Currency,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}

func (h BookingHandler) Accept(c *gin.Context) {
	cmd := bookingapp.AcceptBookingCommand{
		BookingID:       c.Param("id"),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.AcceptBookingCommand, *bookingapp.AcceptBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h BookingHandler) Reject(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	cmd := bookingapp.RejectBookingCommand{BookingID: c.Param("id"), Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.RejectBookingCommand, *bookingapp.RejectBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) MarkUnavailable(c *gin.Context) {
	cmd := bookingapp.MarkUnavailableCommand{BookingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.MarkUnavailableCommand, *bookingapp.RejectBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setScheduleRequest struct {
	StartDate string `json:"start_date" validate:"required"`
}

func (h BookingHandler) SetSchedule(c *gin.Context) {
	var req setScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	cmd := bookingapp.SetScheduleCommand{BookingID: c.Param("id"), StartDate: req.StartDate}
	result, err := commands.Dispatch[bookingapp.SetScheduleCommand, *bookingapp.SetScheduleResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type dropBookingRequest struct {
	Reason        string `json:"reason" validate:"required"`
	ReferenceDate string `json:"reference_date"`
}

func (h BookingHandler) Drop(c *gin.Context) {
	var req dropBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	cmd := bookingapp.DropBookingCommand{
		BookingID:     c.Param("id"),
		Reason:        req.Reason,
		ReferenceDate: req.ReferenceDate,
	}
	result, err := commands.Dispatch[bookingapp.DropBookingCommand, *bookingapp.DropBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), Reason: req.Reason}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) List(c *gin.Context) {
	q := bookingapp.ListBookingsQuery{
		Store:   bookingapp.StoreName(c.DefaultQuery("store", string(bookingapp.StoreRequests))),
		Variant: domainbooking.Variant(c.Query("variant")),
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, []bookingapp.BookingView](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

// respondError translates the error taxonomy into HTTP statuses. A partial
// relocation gets its own code so operators can tell "money moved, records
// lag" apart from a declined refund.
func respondError(c *gin.Context, err error) {
	var partial *bookingapp.PartialRelocationError
	switch {
	case errors.As(err, &partial):
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":        "partial_relocation",
			"error":       partial.Error(),
			"payment_ref": partial.PaymentRef,
		})
	case errors.Is(err, policies.ErrGateway):
		c.JSON(http.StatusBadGateway, gin.H{"code": "gateway", "error": err.Error()})
	case errors.Is(err, domainbooking.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"code": "conflict", "error": err.Error()})
	case errors.Is(err, domainbooking.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"code": "invalid_state", "error": err.Error()})
	case errors.Is(err, domainbooking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.Is(err, caldate.ErrUnparsable),
		errors.Is(err, domainbooking.ErrInvalidPeriod),
		errors.Is(err, domainbooking.ErrReasonRequired),
		errors.Is(err, domainbooking.ErrNotScheduled),
		errors.Is(err, domainbooking.ErrNotPaid):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return "invalid field: " + fieldErrs[0].Field()
	}
	return err.Error()
}

var _ BookingHTTP = BookingHandler{}
