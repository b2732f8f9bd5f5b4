package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type emailAddress struct {
	Address string `json:"address"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type message struct {
	Subject       string      `json:"subject"`
	Body          itemBody    `json:"body"`
	ToRecipients  []recipient `json:"toRecipients"`
	BccRecipients []recipient `json:"bccRecipients,omitempty"`
}

type sendMailRequest struct {
	Message         message `json:"message"`
	SaveToSentItems bool    `json:"saveToSentItems"`
}

func recipients(addrs []string) []recipient {
	rs := make([]recipient, 0, len(addrs))
	for _, a := range addrs {
		if a == "" {
			continue
		}
		rs = append(rs, recipient{EmailAddress: emailAddress{Address: a}})
	}
	return rs
}

// SendMail は送信元メールボックスからHTMLメールを送る。Graphは受理時に202を返す。
// 設定されたBCCが全メールに付与される。
func (c *Client) SendMail(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(recipients(to)) == 0 {
		return fmt.Errorf("メールの宛先がありません: %s", subject)
	}

	req := sendMailRequest{
		Message: message{
			Subject:       subject,
			Body:          itemBody{ContentType: "HTML", Content: htmlBody},
			ToRecipients:  recipients(to),
			BccRecipients: recipients(c.cfg.MailBCC),
		},
		SaveToSentItems: true,
	}
	path := fmt.Sprintf("/users/%s/sendMail", url.PathEscape(c.cfg.MailSender))

	_, _, err := c.do(ctx, "send_mail", http.MethodPost, path, req, nil, http.StatusAccepted)
	return err
}
