package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/hitoshi/newcomers/internal/security"
)

// MailSender はHTMLメールの送信インターフェース。
type MailSender interface {
	SendMail(ctx context.Context, to []string, subject, htmlBody string) error
}

var reportTemplate = template.Must(template.New("report").Parse(
	`<p>Hi,</p>
{{range .Intro}}<p>{{.}}</p>
{{end}}<table border="1"><thead><tr>{{range .Table.Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Table.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody></table>
{{with .Footer}}<p><em>{{.}}</em></p>{{end}}`))

// Mailer はレポートをHTMLに変換して送信する。
type Mailer struct {
	sender    MailSender
	sanitizer security.ReportSanitizerService
	logger    *slog.Logger
}

// NewMailer はMailerの新しいインスタンスを生成する。
func NewMailer(sender MailSender, sanitizer security.ReportSanitizerService, logger *slog.Logger) *Mailer {
	return &Mailer{
		sender:    sender,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Render はレポートのHTML本文を生成する。値はテンプレートでエスケープされた後、許可リストでサニタイズされる。
func (m *Mailer) Render(r Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("レポート %q の生成に失敗しました: %w", r.Subject, err)
	}
	return m.sanitizer.Sanitize(buf.String()), nil
}

// Send はレポートを宛先に送信する。
func (m *Mailer) Send(ctx context.Context, to []string, r Report) error {
	body, err := m.Render(r)
	if err != nil {
		return err
	}
	if err := m.sender.SendMail(ctx, to, r.Subject, body); err != nil {
		return fmt.Errorf("レポート %q の送信に失敗しました: %w", r.Subject, err)
	}

	m.logger.Info("レポートを送信しました",
		slog.String("subject", r.Subject),
		slog.Int("rows", len(r.Table.Rows)),
	)
	return nil
}
