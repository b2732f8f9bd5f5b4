package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ReportSanitizerService はレポートメール本文のサニタイズ機能のインターフェースを定義する。
type ReportSanitizerService interface {
	// Sanitize は表形式のレポートに必要なタグだけを残したHTMLを返す。
	// 住所や氏名などシート由来の値に含まれるマークアップはここで無害化される。
	Sanitize(rawHTML string) string
}

// reportSanitizer はReportSanitizerServiceの実装。
type reportSanitizer struct {
	policy *bluemonday.Policy
}

// NewReportSanitizer はReportSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: h2, p, br, strong, em, ul, li, table, thead, tbody, tr, th, td
//   - aタグ: httpsのhrefのみ、rel="noreferrer" を自動付与
//   - tableのborder属性, th/tdのcolspan属性
func NewReportSanitizer() *reportSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h2", "p", "br", "strong", "em", "ul", "li",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("border").Matching(bluemonday.Integer).OnElements("table")
	p.AllowAttrs("colspan").Matching(bluemonday.Integer).OnElements("th", "td")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.RequireNoReferrerOnLinks(true)
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return u.Host != ""
	})

	return &reportSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズする。空文字列には空文字列を返す。
func (s *reportSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
