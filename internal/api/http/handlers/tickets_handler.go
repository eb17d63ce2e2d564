package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketsHandler manages authenticated end-user ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	sync    config.SyncConfig
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, sync config.SyncConfig) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, sync: sync}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := userActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := formOrJSON(c, &req, func(c *fiber.Ctx, r *dto.CreateTicketRequest) {
		r.Subject = c.FormValue("subject")
		r.Category = domain.TicketCategory(c.FormValue("category"))
		r.Priority = domain.TicketPriority(c.FormValue("priority"))
		r.Message = c.FormValue("message")
	}); err != nil {
		return err
	}
	attachments, err := parseAttachments(c)
	if err != nil {
		return err
	}

	result, err := h.tickets.CreateTicket(c.UserContext(), actor, service.CreateTicketInput{
		Subject:     req.Subject,
		Category:    req.Category,
		Priority:    req.Priority,
		Body:        req.Message,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(result.Ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := userActor(c)
	if err != nil {
		return err
	}
	tickets, meta, err := h.tickets.ListOwnTickets(c.UserContext(), actor, parseListFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(ticketList(tickets, meta))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := userActor(c)
	if err != nil {
		return err
	}
	ticket, msgs, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, msgs, h.sync.DetailPollSeconds)})
}

// Reply POST /tickets/:id/messages.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	actor, err := userActor(c)
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if err := formOrJSON(c, &req, func(c *fiber.Ctx, r *dto.ReplyRequest) {
		r.Body = c.FormValue("body")
	}); err != nil {
		return err
	}
	attachments, err := parseAttachments(c)
	if err != nil {
		return err
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

func userActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok || actor.Role != domain.RoleUser {
		return domain.Actor{}, apperrors.NewUnauthorized("user required")
	}
	return *actor, nil
}

func parseListFilter(c *fiber.Ctx) service.ListFilter {
	filter := service.ListFilter{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 20),
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.TicketCategory(strings.TrimSpace(part)))
		}
	}
	return filter
}
