package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/newcomers/internal/model"
)

const (
	// TrackingCategory は追跡アイテムのカテゴリ。
	TrackingCategory = "Employee Lifecycle"
	// TrackingSubCategory は追跡アイテムのサブカテゴリ。
	TrackingSubCategory = "Pre-Onboarding"
	// trackingTitlePrefix は追跡アイテムのタイトルの接頭辞。
	trackingTitlePrefix = "IT Welcome - "
	// expirationLayout は有効期限列の書式。
	expirationLayout = "2006-01-02T15:04:05"
)

// listItem はSharePointリストアイテムの応答。列の値は fields に入る。
type listItem struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

func (c *Client) listItemsPath(listID, selectFields string) string {
	return fmt.Sprintf("/sites/%s/lists/%s/items?expand=fields(select=%s)&$top=999",
		c.cfg.SiteID, listID, selectFields)
}

// ListCredentials は資格情報リストの全エントリを返す。
// Title 列を従業員IDとして扱い、整数に変換できない行は読み飛ばす。
func (c *Client) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	var creds []model.Credential
	path := c.listItemsPath(c.cfg.CredentialsListID, "Title,AzADObjectId,PasswordShareLink")

	err := c.getPaged(ctx, "list_credentials", path, nil, func(raw json.RawMessage) error {
		var item listItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("資格情報リストのパースに失敗しました: %w", err)
		}
		title := fieldString(item.Fields, "Title")
		id, err := strconv.Atoi(title)
		if err != nil {
			c.logger.Warn("従業員IDでない資格情報エントリを読み飛ばします",
				slog.String("item_id", item.ID),
				slog.String("title", title),
			)
			return nil
		}
		creds = append(creds, model.Credential{
			EmployeeID:  id,
			DirectoryID: fieldString(item.Fields, "AzADObjectId"),
			Link:        fieldString(item.Fields, "PasswordShareLink"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// ListTracked は追跡リストのうち範囲内のアイテムを全件返す。
func (c *Client) ListTracked(ctx context.Context, scope model.TrackingScope) ([]model.TrackedItem, error) {
	var items []model.TrackedItem
	path := c.listItemsPath(c.cfg.TrackingListID, "Title,EmployeeId,Category,SubCategory")

	err := c.getPaged(ctx, "list_tracked", path, nil, func(raw json.RawMessage) error {
		var item listItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("追跡リストのパースに失敗しました: %w", err)
		}
		tracked := model.TrackedItem{
			EmployeeID:  fieldString(item.Fields, "EmployeeId"),
			Title:       fieldString(item.Fields, "Title"),
			Category:    fieldString(item.Fields, "Category"),
			SubCategory: fieldString(item.Fields, "SubCategory"),
		}
		if scope.Matches(tracked) {
			items = append(items, tracked)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CreateTracked は追跡リストにアイテムを作成する。
// 201 は作成、409 は既存（一意列の衝突）として扱う。
func (c *Client) CreateTracked(ctx context.Context, req model.TrackedItemRequest) (model.CreateOutcome, error) {
	payload := map[string]any{
		"fields": map[string]any{
			"Title":              trackingTitlePrefix + req.DisplayName,
			"EntraId":            req.DirectoryID,
			"EmployeeId":         strconv.Itoa(req.EmployeeID),
			"SendGridTemplateId": c.cfg.WelcomeTemplateID,
			"Category":           TrackingCategory,
			"SubCategory":        TrackingSubCategory,
			"ExpirationDate":     req.ExpirationDate.In(time.UTC).Format(expirationLayout),
		},
	}
	path := fmt.Sprintf("/sites/%s/lists/%s/items", c.cfg.SiteID, c.cfg.TrackingListID)

	_, _, err := c.do(ctx, "create_tracked", http.MethodPost, path, payload, nil, http.StatusCreated)
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
		return model.CreateOutcomeConflict, nil
	}
	if err != nil {
		return 0, err
	}
	return model.CreateOutcomeCreated, nil
}

// fieldString はリスト列の値を文字列として返す。数値列は整数表記に揃える。
func fieldString(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
