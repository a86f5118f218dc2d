package mailer

import (
	"context"
	"fmt"

	"cv-avatar-server/src/configs"
	"cv-avatar-server/src/core/utils"

	"github.com/resend/resend-go/v2"
)

// Notifier 事务邮件发送接口
type Notifier interface {
	// Send 发送一封HTML邮件
	Send(ctx context.Context, to, subject, html string) error
}

// ResendNotifier 基于Resend API的邮件发送实现
type ResendNotifier struct {
	client *resend.Client
	from   string
	logger *utils.Logger
}

// NewResendNotifier 创建Resend邮件发送器
func NewResendNotifier(config *configs.EmailConfig, logger *utils.Logger) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(config.APIKey),
		from:   config.From,
		logger: logger,
	}
}

// Send 发送邮件，不关心投递回执，只返回提交错误
func (n *ResendNotifier) Send(ctx context.Context, to, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w", err)
	}
	n.logger.Info("邮件已提交: id=%s, to=%s, subject=%s", sent.Id, to, subject)
	return nil
}
