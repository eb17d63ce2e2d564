package handlers

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		Subject:     ticket.Subject,
		Category:    ticket.Category,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		GuestName:   ticket.GuestName,
		GuestEmail:  ticket.GuestEmail,
		AdminUnread: ticket.AdminUnread,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, messages []domain.Message, refreshSeconds int) dto.TicketDetailResponse {
	msgs := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, messageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary:  ticketSummary(ticket),
		Messages:       msgs,
		RefreshSeconds: refreshSeconds,
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:       att.ID,
			FileName: att.FileName,
			FileURL:  att.FileURL,
			MimeType: att.MimeType,
			FileSize: att.FileSize,
		})
	}
	return dto.MessageResponse{
		ID:          msg.ID,
		SenderType:  msg.SenderType,
		SenderID:    msg.SenderID,
		IsInternal:  msg.IsInternal,
		Content:     msg.Content,
		IsDeleted:   msg.IsDeleted,
		DeletedAt:   msg.DeletedAt,
		EditedAt:    msg.EditedAt,
		Attachments: attachments,
		CreatedAt:   msg.CreatedAt,
	}
}

func ticketList(tickets []domain.Ticket, meta service.Pagination) dto.TicketListResponse {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return dto.TicketListResponse{Data: items, Meta: meta}
}

// parseAttachments reads uploaded files from a multipart body. JSON requests
// simply have no files.
func parseAttachments(c *fiber.Ctx) ([]service.AttachmentUpload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewInvalidRequest("invalid multipart payload", nil)
	}
	files := form.File["attachments"]
	uploads := make([]service.AttachmentUpload, 0, len(files))
	for _, header := range files {
		upload, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func readUpload(header *multipart.FileHeader) (service.AttachmentUpload, error) {
	file, err := header.Open()
	if err != nil {
		return service.AttachmentUpload{}, apperrors.NewInvalidRequest("unreadable attachment", map[string]any{"file_name": header.Filename})
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		return service.AttachmentUpload{}, apperrors.NewInvalidRequest("unreadable attachment", map[string]any{"file_name": header.Filename})
	}
	return service.AttachmentUpload{
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Body:     body,
	}, nil
}

// formOrJSON fills req from a multipart form when present, otherwise parses
// the JSON body.
func formOrJSON[T any](c *fiber.Ctx, req *T, fromForm func(*fiber.Ctx, *T)) error {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fromForm(c, req)
		return nil
	}
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewInvalidRequest("invalid payload", nil)
	}
	return nil
}
