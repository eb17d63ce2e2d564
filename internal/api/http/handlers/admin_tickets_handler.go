package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AdminTicketsHandler serves the operator side: inbox listing, full thread
// access including internal notes, moderation, unread tracking and the
// force-close action.
type AdminTicketsHandler struct {
	tickets *service.TicketService
	unread  *service.UnreadService
	sync    config.SyncConfig
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService, unreadService *service.UnreadService, sync config.SyncConfig) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: ticketService, unread: unreadService, sync: sync}
}

// ListTickets GET /admin/tickets.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	tickets, meta, err := h.tickets.ListTickets(c.UserContext(), actor, parseListFilter(c))
	if err != nil {
		return err
	}
	resp := ticketList(tickets, meta)
	return c.JSON(fiber.Map{
		"data":            resp.Data,
		"meta":            resp.Meta,
		"refresh_seconds": h.sync.InboxPollSeconds,
	})
}

// GetTicket GET /admin/tickets/:id.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	ticket, msgs, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, msgs, h.sync.DetailPollSeconds)})
}

// Reply POST /admin/tickets/:id/messages.
func (h *AdminTicketsHandler) Reply(c *fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if err := formOrJSON(c, &req, func(c *fiber.Ctx, r *dto.ReplyRequest) {
		r.Body = c.FormValue("body")
		r.IsInternal = c.FormValue("is_internal") == "true"
		r.Resolve = c.FormValue("resolve") == "true"
	}); err != nil {
		return err
	}
	attachments, err := parseAttachments(c)
	if err != nil {
		return err
	}

	msg, err := h.tickets.Reply(c.UserContext(), actor, c.Params("id"), service.ReplyInput{
		Body:        req.Body,
		IsInternal:  req.IsInternal,
		Attachments: attachments,
		Resolve:     req.Resolve,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// EditMessage PATCH /admin/messages/:id.
func (h *AdminTicketsHandler) EditMessage(c *fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	var req dto.EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidRequest("invalid payload", nil)
	}
	msg, err := h.tickets.EditMessage(c.UserContext(), actor, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponse(msg)})
}

// DeleteMessage DELETE /admin/messages/:id.
func (h *AdminTicketsHandler) DeleteMessage(c *fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteMessage(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// MarkRead POST /admin/tickets/:id/read. An explicit operator action taken
// when a ticket is opened, never a polling side effect.
func (h *AdminTicketsHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	if err := h.unread.MarkRead(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UnreadCounts GET /admin/tickets/unread-counts.
func (h *AdminTicketsHandler) UnreadCounts(c *fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	counts, err := h.unread.Counts(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}

// ForceClose POST /admin/tickets/:id/close.
func (h *AdminTicketsHandler) ForceClose(c *fiber.Ctx) error {
	actor, err := adminActor(c)
	if err != nil {
		return err
	}
	var req dto.ForceCloseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewInvalidRequest("invalid payload", nil)
		}
	}
	ticket, err := h.tickets.ForceClose(c.UserContext(), actor, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func adminActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, apperrors.NewUnauthorized("staff required")
	}
	return *actor, nil
}
