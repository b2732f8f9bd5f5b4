package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allowAllGuard はループバックのhttptestサーバーを許可するテスト用ガード。
type allowAllGuard struct{}

func (allowAllGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (allowAllGuard) ValidateURL(rawURL string) error { return nil }

func newDriveServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drives/drive-1/items/item-1":
			writeJSON(w, http.StatusOK, map[string]any{
				"name":                         "Newcomers.xlsx",
				"@microsoft.graph.downloadUrl": server.URL + "/content",
			})
		case "/content":
			assert.Empty(t, r.Header.Get("Authorization"), "ダウンロードURLにトークンを送ってはならない")
			w.Write([]byte(content))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	return server
}

func TestClient_DownloadWorkbook(t *testing.T) {
	server := newDriveServer(t, "PK-xlsx-bytes")
	defer server.Close()

	c := newTestClient(t, server)
	c.guard = allowAllGuard{}
	c.downloadClient = server.Client()

	data, err := c.DownloadWorkbook(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "PK-xlsx-bytes", string(data))
}

func TestClient_DownloadWorkbook_TooLarge(t *testing.T) {
	server := newDriveServer(t, strings.Repeat("x", 2048))
	defer server.Close()

	c := newTestClient(t, server)
	c.guard = allowAllGuard{}
	c.downloadClient = server.Client()

	_, err := c.DownloadWorkbook(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "上限")
}

// 実際のガードはhttpのループバックURLを拒否する。
func TestClient_DownloadWorkbook_RejectsUnsafeURL(t *testing.T) {
	server := newDriveServer(t, "PK")
	defer server.Close()

	_, err := newTestClient(t, server).DownloadWorkbook(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ダウンロードURLが不正です")
}
