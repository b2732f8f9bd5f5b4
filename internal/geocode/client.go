// Package geocode は住所検証APIとの連携機能を提供する。
package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/newcomers/internal/model"
)

// defaultEndpoint は住所検証APIのエンドポイント。
const defaultEndpoint = "https://addressvalidation.googleapis.com/v1:validateAddress"

// Client は住所検証APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
	}
}

type validateRequest struct {
	Address struct {
		AddressLines []string `json:"addressLines"`
	} `json:"address"`
}

type validateResponse struct {
	Result struct {
		Address struct {
			FormattedAddress string `json:"formattedAddress"`
		} `json:"address"`
	} `json:"result"`
}

// ValidateAddress は住所を検証し、整形済みの住所を返す。
// 検証できなかった場合は model.ErrAddressValidation をラップしたエラーを返す。
// 呼び出し元は元の住所を使い続けるかを判断する。
func (c *Client) ValidateAddress(ctx context.Context, address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", fmt.Errorf("%w: 住所が空です", model.ErrAddressValidation)
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("key", c.apiKey)
	reqURL.RawQuery = q.Encode()

	var payload validateRequest
	payload.Address.AddressLines = []string{address}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("住所検証APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("住所検証APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("%w: ステータス %d", model.ErrAddressValidation, resp.StatusCode)
	}

	var result validateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: レスポンスJSONのパースに失敗しました: %v", model.ErrAddressValidation, err)
	}
	formatted := strings.TrimSpace(result.Result.Address.FormattedAddress)
	if formatted == "" {
		return "", fmt.Errorf("%w: 整形済みの住所がありません", model.ErrAddressValidation)
	}
	return formatted, nil
}
