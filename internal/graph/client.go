// Package graph はMicrosoft Graph APIとの連携機能を提供する。
// ディレクトリ検索、SharePointリストの読み書き、メール送信、
// ドライブ上のワークブックのダウンロードを1つのクライアントで扱う。
package graph

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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/hitoshi/newcomers/internal/security"
)

const (
	// defaultBaseURL はGraph APIのエンドポイント。
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	// tokenURLFormat はテナントのトークンエンドポイント。
	tokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	// graphScope はクライアントクレデンシャルフローで要求するスコープ。
	graphScope = "https://graph.microsoft.com/.default"
	// maxErrorBody はエラーメッセージに含めるレスポンスボディの最大長。
	maxErrorBody = 512
)

// Config はGraphクライアントの設定。
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// TokenURL は空の場合 TenantID から組み立てる。
	TokenURL string

	SiteID            string
	DriveID           string
	ItemID            string
	CredentialsListID string
	TrackingListID    string

	MailSender        string
	MailBCC           []string
	WelcomeTemplateID string

	// RateLimit は1秒あたりの最大リクエスト数。
	RateLimit       float64
	Timeout         time.Duration
	MaxDownloadSize int64
}

// StatusError はGraphが想定外のHTTPステータスを返したことを示す。
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("graph %s がステータス %d を返しました: %s", e.Op, e.StatusCode, e.Body)
}

// Client はMicrosoft Graph APIのクライアント。
// すべての呼び出しはレートリミッタを通り、1件ずつ同期的に実行される。
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	guard          security.DownloadGuardService
	limiter        *rate.Limiter
	logger         *slog.Logger
	cfg            Config
	baseURL        string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// アクセストークンはクライアントクレデンシャルフローで取得し、期限切れ前に自動更新される。
func NewClient(ctx context.Context, cfg Config, guard security.DownloadGuardService, logger *slog.Logger) *Client {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf(tokenURLFormat, cfg.TenantID)
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{graphScope},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
	httpClient := cc.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		httpClient:     httpClient,
		downloadClient: guard.NewSafeClient(cfg.Timeout),
		guard:          guard,
		limiter:        rate.NewLimiter(limit, 1),
		logger:         logger,
		cfg:            cfg,
		baseURL:        defaultBaseURL,
	}
}

// endpoint はベースURLにパスを連結する。パスが絶対URLの場合はそのまま返す。
func (c *Client) endpoint(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

// do はリクエストを送信し、ステータスとボディを返す。
// want に含まれないステータスは StatusError として返す。
func (c *Client) do(ctx context.Context, op, method, path string, payload any, header http.Header, want ...int) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("レートリミッタの待機に失敗しました: %w", err)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Graph APIの呼び出しに失敗しました",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	c.logger.Debug("Graph APIを呼び出しました",
		slog.String("op", op),
		slog.Int("http_status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	for _, code := range want {
		if resp.StatusCode == code {
			return resp.StatusCode, respBody, nil
		}
	}
	return resp.StatusCode, respBody, &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       truncate(string(respBody), maxErrorBody),
	}
}

// page はコレクション応答の1ページ。
type page struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// getPaged は @odata.nextLink を辿ってコレクションの全要素を fn に渡す。
func (c *Client) getPaged(ctx context.Context, op, path string, header http.Header, fn func(raw json.RawMessage) error) error {
	next := path
	for next != "" {
		_, body, err := c.do(ctx, op, http.MethodGet, next, nil, header, http.StatusOK)
		if err != nil {
			return err
		}

		var p page
		if err := json.Unmarshal(body, &p); err != nil {
			return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		}
		for _, raw := range p.Value {
			if err := fn(raw); err != nil {
				return err
			}
		}
		next = p.NextLink
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
