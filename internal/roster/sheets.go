package roster

import (
	"fmt"
	"strings"
	"time"
)

// SheetName は月ごとのシート名（例: "june 2024"）を返す。
func SheetName(t time.Time) string {
	return strings.ToLower(fmt.Sprintf("%s %d", t.Month(), t.Year()))
}

// DueSheets は処理対象のシート名を処理順に返す。
// 当月のシートに加え、lookaheadDays 日後が翌月以降に入る場合は翌月のシートも含める。
// 複数のシートは同じ追跡リストを共有するため、必ずこの順に1つずつ処理する。
func DueSheets(now time.Time, lookaheadDays int) []string {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	sheets := []string{SheetName(current)}

	next := current.AddDate(0, 1, 0)
	ahead := now.AddDate(0, 0, lookaheadDays)
	if !ahead.Before(next) {
		sheets = append(sheets, SheetName(next))
	}
	return sheets
}
