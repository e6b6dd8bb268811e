package auth

import (
	"fmt"
	"net/url"

	"github.com/go-verify-api/internal/domain"
)

type message struct {
	Subject string
	Body    string
	SMS     string
}

func verificationLink(baseURL string, issued *domain.IssuedCode) string {
	q := url.Values{}
	q.Set("email", issued.Identifier)
	q.Set("token", issued.LongToken)
	return baseURL + "/v1/auth/verify-email/link?" + q.Encode()
}

func composeMessage(baseURL string, issued *domain.IssuedCode) message {
	minutes := int(issued.ExpiresAt.Sub(issued.IssuedAt).Minutes())
	switch issued.Purpose.CodeScope() {
	case domain.PurposePasswordReset:
		return message{
			Subject: "Reset your password",
			Body: fmt.Sprintf("Your password reset code is %s.\r\nIt expires in %d minutes.\r\n"+
				"If you did not ask for this you can ignore this email.", issued.ShortCode, minutes),
			SMS: fmt.Sprintf("Your password reset code: %s", issued.ShortCode),
		}
	default:
		return message{
			Subject: "Confirm your email",
			Body: fmt.Sprintf("Your verification code is %s.\r\nOr open this link: %s\r\nIt expires in %d minutes.",
				issued.ShortCode, verificationLink(baseURL, issued), minutes),
			SMS: fmt.Sprintf("Your verification code: %s", issued.ShortCode),
		}
	}
}
