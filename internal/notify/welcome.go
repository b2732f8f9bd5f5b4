// Package notify は新入社員への歓迎メールと社内向けレポートメールの送信を提供する。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/newcomers/internal/model"
)

const (
	// defaultSendGridEndpoint はSendGridのメール送信エンドポイント。
	defaultSendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"
	// templateDateLayout はテンプレートに渡す日時の書式。
	templateDateLayout = "02 January 2006 15:04"
	// firstDayHour は初出社日の案内時刻。
	firstDayHour = 8
	// accountEnabledHour はアカウント有効化の案内時刻（初出社日の2日前）。
	accountEnabledHour = 4
	accountEnabledLead = 2
)

// WelcomeConfig は歓迎メールの設定。
type WelcomeConfig struct {
	APIKey            string
	TemplateID        string
	FromAddress       string
	FromName          string
	BCC               []string
	OfficeCountryCode string
}

// WelcomeSender はSendGridの動的テンプレートで歓迎メールを送る。
type WelcomeSender struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        WelcomeConfig
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewWelcomeSender はWelcomeSenderの新しいインスタンスを生成する。
func NewWelcomeSender(httpClient *http.Client, cfg WelcomeConfig, logger *slog.Logger) *WelcomeSender {
	return &WelcomeSender{
		httpClient: httpClient,
		logger:     logger,
		cfg:        cfg,
		endpoint:   defaultSendGridEndpoint,
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgEmployee struct {
	FirstDayOfWork     string `json:"FirstDayOfWork"`
	OfficeCountryCode  string `json:"OfficeCountryCode"`
	OnePasswordURL     string `json:"OnePasswordUrl"`
	FirstName          string `json:"FirstName"`
	AccountEnabledFrom string `json:"AccountEnabledFrom"`
}

type sgDelivery struct {
	UseDelivery bool `json:"UseDelivery"`
}

type sgTemplateData struct {
	Employee sgEmployee `json:"Employee"`
	Assets   struct {
		Delivery sgDelivery `json:"Delivery"`
	} `json:"Assets"`
}

type sgPersonalization struct {
	To                  []sgAddress    `json:"to"`
	BCC                 []sgAddress    `json:"bcc,omitempty"`
	DynamicTemplateData sgTemplateData `json:"dynamic_template_data"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	TemplateID       string              `json:"template_id"`
}

// templateData は従業員の情報からテンプレート変数を組み立てる。
func (s *WelcomeSender) templateData(e model.ResolvedEmployee) sgTemplateData {
	firstDay := e.StartDate.In(time.UTC).Add(firstDayHour * time.Hour)
	enabled := e.StartDate.AddDays(-accountEnabledLead).In(time.UTC).Add(accountEnabledHour * time.Hour)

	var data sgTemplateData
	data.Employee = sgEmployee{
		FirstDayOfWork:     firstDay.Format(templateDateLayout),
		OfficeCountryCode:  s.cfg.OfficeCountryCode,
		OnePasswordURL:     e.CredentialLink,
		FirstName:          firstName(e.DisplayName),
		AccountEnabledFrom: enabled.Format(templateDateLayout),
	}
	data.Assets.Delivery.UseDelivery = false
	return data
}

// SendWelcome は従業員の個人メールアドレスに歓迎メールを送る。SendGridは受理時に202を返す。
func (s *WelcomeSender) SendWelcome(ctx context.Context, e model.ResolvedEmployee) error {
	if strings.TrimSpace(e.PersonalEmail) == "" {
		return fmt.Errorf("従業員 %d の個人メールアドレスがありません", e.EmployeeID)
	}

	p := sgPersonalization{
		To:                  []sgAddress{{Email: e.PersonalEmail}},
		DynamicTemplateData: s.templateData(e),
	}
	for _, b := range s.cfg.BCC {
		if b != "" && !strings.EqualFold(b, e.PersonalEmail) {
			p.BCC = append(p.BCC, sgAddress{Email: b})
		}
	}
	mail := sgMail{
		Personalizations: []sgPersonalization{p},
		From:             sgAddress{Email: s.cfg.FromAddress, Name: s.cfg.FromName},
		TemplateID:       s.cfg.TemplateID,
	}

	data, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SendGridの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error("SendGridがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.Int("employee_id", e.EmployeeID),
		)
		return fmt.Errorf("SendGridがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}
	return nil
}

// firstName は表示名の先頭の語を返す。
func firstName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
