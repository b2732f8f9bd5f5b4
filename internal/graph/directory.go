package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/newcomers/internal/model"
)

// FindIdentity は従業員IDでディレクトリのユーザーを検索する。
// 該当ユーザーがいない場合は model.ErrNotFound を返す。複数いる場合は先頭を使う。
func (c *Client) FindIdentity(ctx context.Context, employeeID int) (model.Identity, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("employeeId eq '%d'", employeeID))
	q.Set("$select", "id,displayName")
	q.Set("$count", "true")

	// employeeId による絞り込みは高度なクエリとして扱われる
	header := http.Header{}
	header.Set("ConsistencyLevel", "eventual")

	_, body, err := c.do(ctx, "find_identity", http.MethodGet, "/users?"+q.Encode(), nil, header, http.StatusOK)
	if err != nil {
		return model.Identity{}, err
	}

	var resp struct {
		Value []struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Identity{}, fmt.Errorf("ユーザー検索結果のパースに失敗しました: %w", err)
	}
	if len(resp.Value) == 0 {
		return model.Identity{}, model.ErrNotFound
	}

	return model.Identity{
		ID:          resp.Value[0].ID,
		DisplayName: resp.Value[0].DisplayName,
	}, nil
}
