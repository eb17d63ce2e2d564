package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

// GuestTicketsHandler serves unauthenticated guests. There is no session:
// every operation after creation carries the per-ticket access token
// explicitly, and a wrong token is indistinguishable from a missing ticket.
type GuestTicketsHandler struct {
	tickets *service.TicketService
	sync    config.SyncConfig
}

// NewGuestTicketsHandler constructs handler.
func NewGuestTicketsHandler(ticketService *service.TicketService, sync config.SyncConfig) *GuestTicketsHandler {
	return &GuestTicketsHandler{tickets: ticketService, sync: sync}
}

// CreateTicket POST /guest/tickets. The response carries the access token
// exactly once; it cannot be recovered later.
func (h *GuestTicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.GuestCreateTicketRequest
	if err := formOrJSON(c, &req, func(c *fiber.Ctx, r *dto.GuestCreateTicketRequest) {
		r.Name = c.FormValue("name")
		r.Email = c.FormValue("email")
		r.Subject = c.FormValue("subject")
		r.Category = domain.TicketCategory(c.FormValue("category"))
		r.Message = c.FormValue("message")
	}); err != nil {
		return err
	}
	attachments, err := parseAttachments(c)
	if err != nil {
		return err
	}

	actor := domain.Actor{
		Role:       domain.RoleGuest,
		GuestName:  req.Name,
		GuestEmail: req.Email,
	}
	result, err := h.tickets.CreateTicket(c.UserContext(), actor, service.CreateTicketInput{
		Subject:     req.Subject,
		Category:    req.Category,
		Body:        req.Message,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.GuestTicketCreatedResponse{
		Ticket:      ticketSummary(result.Ticket),
		AccessToken: result.GuestToken,
	}})
}

// GetTicket GET /guest/tickets/:id?access_token=...
func (h *GuestTicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor := domain.Actor{
		Role:        domain.RoleGuest,
		AccessToken: guestToken(c),
	}
	ticket, msgs, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	// Guests load once and refresh manually; no poll cadence advertised.
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, msgs, 0)})
}

// Reply POST /guest/tickets/:id/messages.
func (h *GuestTicketsHandler) Reply(c *fiber.Ctx) error {
	var req dto.ReplyRequest
	if err := formOrJSON(c, &req, func(c *fiber.Ctx, r *dto.ReplyRequest) {
		r.Body = c.FormValue("body")
		r.AccessToken = c.FormValue("access_token")
	}); err != nil {
		return err
	}
	if req.AccessToken == "" {
		req.AccessToken = guestToken(c)
	}
	attachments, err := parseAttachments(c)
	if err != nil {
		return err
	}

	actor := domain.Actor{
		Role:        domain.RoleGuest,
		AccessToken: req.AccessToken,
	}
	msg, err := h.tickets.Reply(c.UserContext(), actor, c.Params("id"), service.ReplyInput{
		Body:        req.Body,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

func guestToken(c *fiber.Ctx) string {
	if token := c.Query("access_token"); token != "" {
		return token
	}
	return c.Get("X-Access-Token")
}
