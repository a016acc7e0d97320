package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer delivers password-reset links through the Resend API.
type ResendMailer struct {
	emails     emailSender
	from       string
	appBaseURL string
	resetPath  string
}

func NewResendMailer(apiKey, from, appBaseURL string) *ResendMailer {
	return &ResendMailer{
		emails:     resend.NewClient(apiKey).Emails,
		from:       from,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		resetPath:  "/reset-password",
	}
}

func (m *ResendMailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := m.resetLink(token)
	deadline := expiresAt.In(kst).Format("2006-01-02 15:04")

	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "[엘리의방] 비밀번호 재설정 안내",
		Html: fmt.Sprintf(
			`<p>아래 링크에서 비밀번호를 재설정해주세요.</p><p><a href="%s">비밀번호 재설정</a></p><p>링크는 %s까지 유효합니다.</p>`,
			link, deadline),
		Text: fmt.Sprintf("비밀번호 재설정: %s (유효기간 %s)", link, deadline),
	}

	if _, err := m.emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func (m *ResendMailer) resetLink(token string) string {
	if m.appBaseURL == "" {
		return token
	}
	return fmt.Sprintf("%s%s?token=%s", m.appBaseURL, m.resetPath, url.QueryEscape(token))
}

var kst = time.FixedZone("KST", 9*60*60)
