package broker

import (
	"context"

	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// Notification broker method names
const (
	NotificationBrokerName = "notification"
	MethodSendMail         = "send_mail"

	// MailTemplateStatusChanged is rendered when a ticket enters a status.
	MailTemplateStatusChanged = "ticket_status_changed"

	detailNotifyTo = "notify_to"
)

// NotificationBroker mails the ticket owner about a transition.
type NotificationBroker struct {
	BaseBroker
	mailer port.Mailer
	logger *zap.Logger
}

// NewNotificationBroker creates the notification broker.
func NewNotificationBroker(mailer port.Mailer, logger *zap.Logger) *NotificationBroker {
	b := &NotificationBroker{
		BaseBroker: NewBaseBroker(NotificationBrokerName),
		mailer:     mailer,
		logger:     logger,
	}
	b.Handle(MethodSendMail, b.sendMail)
	return b
}

func (b *NotificationBroker) sendMail(ctx context.Context, inv *Invocation) error {
	to := inv.Detail().GetString(detailNotifyTo)
	if to == "" {
		b.logger.Info("No recipient for ticket notification, skipping",
			zap.String("ticket_id", inv.Ticket.ID))
		return nil
	}

	b.mailer.Sendmail(ctx, to, MailTemplateStatusChanged, entity.Document{
		"ticket_id":   inv.Ticket.ID,
		"ticket_type": inv.Ticket.TicketType,
		"owner_name":  inv.Ticket.OwnerName,
		"from_status": inv.FromStatus,
		"to_status":   inv.ToStatus,
		"operator":    inv.Caller.UserName,
	})
	return nil
}
