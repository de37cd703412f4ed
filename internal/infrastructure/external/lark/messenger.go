package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/port"
)

// Receive ID types understood by the IM API
const (
	receiveIDEmail  = "email"
	receiveIDOpenID = "open_id"
	receiveIDUserID = "user_id"
)

// Messenger implements port.MessageSender over Lark IM
type Messenger struct {
	client *lark.Client
	logger *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(client *lark.Client, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// SendMessage sends subject and body as one text message. The recipient may
// be an email address, an open_id or a user_id.
func (m *Messenger) SendMessage(ctx context.Context, to string, subject string, body string) error {
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	content, err := textContent(subject, body)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType(to)).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(to).
			MsgType("text").
			Content(content).
			Build()).
		Build()

	resp, err := m.client.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	m.logger.Info("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", to))
	return nil
}

// receiveIDType infers the IM receive_id_type from the recipient's shape
func receiveIDType(to string) string {
	switch {
	case strings.Contains(to, "@"):
		return receiveIDEmail
	case strings.HasPrefix(to, "ou_"):
		return receiveIDOpenID
	default:
		return receiveIDUserID
	}
}

// textContent builds the JSON content of a text message
func textContent(subject, body string) (string, error) {
	text := body
	if subject != "" {
		text = subject + "\n\n" + body
	}
	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	return string(raw), nil
}

var _ port.MessageSender = (*Messenger)(nil)
