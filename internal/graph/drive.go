package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DownloadWorkbook はドライブ上の名簿ワークブックを取得する。
// アイテムのメタデータから事前認証済みダウンロードURLを得て、
// そのURLはSSRF防止付きクライアントで取得する（Graphのトークンは送らない）。
func (c *Client) DownloadWorkbook(ctx context.Context) ([]byte, error) {
	path := fmt.Sprintf("/drives/%s/items/%s", c.cfg.DriveID, c.cfg.ItemID)
	_, body, err := c.do(ctx, "get_drive_item", http.MethodGet, path, nil, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var item struct {
		Name        string `json:"name"`
		DownloadURL string `json:"@microsoft.graph.downloadUrl"`
	}
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("ドライブアイテムのパースに失敗しました: %w", err)
	}
	if item.DownloadURL == "" {
		return nil, fmt.Errorf("ドライブアイテム %q にダウンロードURLがありません", item.Name)
	}
	if err := c.guard.ValidateURL(item.DownloadURL); err != nil {
		return nil, fmt.Errorf("ダウンロードURLが不正です: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ワークブックのダウンロードに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "download_workbook", StatusCode: resp.StatusCode}
	}

	limit := c.cfg.MaxDownloadSize
	reader := io.Reader(resp.Body)
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("ワークブックの読み取りに失敗しました: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("ワークブックのサイズが上限を超えています: > %d bytes", limit)
	}

	c.logger.Info("名簿ワークブックをダウンロードしました",
		slog.String("name", item.Name),
		slog.Int("size_bytes", len(data)),
	)
	return data, nil
}
