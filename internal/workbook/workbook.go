// Package workbook はExcelブックからシート単位で行を読み出す機能を提供する。
// セルは列名をキーとするマップとして返し、型の解釈は呼び出し側（roster）に委ねる。
package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Row はシート1行分のセル値。キーはヘッダー行の列名。
// 値は string または time.Time（日付列として指定されたセル）。空セルはキー自体を持たない。
type Row map[string]any

// Workbook は読み込み済みのExcelブック。
type Workbook struct {
	file        *excelize.File
	dateColumns map[string]bool
}

// Open はExcelブックを読み込む。
// dateColumns に指定された列はシリアル値として格納されていれば time.Time に変換する。
func Open(r io.Reader, dateColumns ...string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("Excelブックの読み込みに失敗しました: %w", err)
	}
	cols := make(map[string]bool, len(dateColumns))
	for _, c := range dateColumns {
		cols[strings.TrimSpace(c)] = true
	}
	return &Workbook{file: f, dateColumns: cols}, nil
}

// Close はブックが保持するリソースを解放する。
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames はブック内のシート名を定義順で返す。
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// FindSheet は大文字小文字と前後の空白を無視してシート名を検索する。
func (w *Workbook) FindSheet(name string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, s := range w.file.GetSheetList() {
		if strings.ToLower(strings.TrimSpace(s)) == want {
			return s, true
		}
	}
	return "", false
}

// LoadSheet は指定シートのデータ行を返す。1行目をヘッダーとして扱う。
// 全セルが空の行は読み飛ばす。
func (w *Workbook) LoadSheet(sheet string) ([]Row, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("シート %q の読み込みに失敗しました: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var result []Row
	for _, cells := range rows[1:] {
		row := make(Row)
		for i, cell := range cells {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row[headers[i]] = w.cellValue(headers[i], cell)
		}
		if len(row) == 0 {
			continue
		}
		result = append(result, row)
	}
	return result, nil
}

// cellValue は日付列のシリアル値を time.Time に変換する。それ以外は文字列のまま返す。
func (w *Workbook) cellValue(header, raw string) any {
	if !w.dateColumns[header] {
		return raw
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Truncate(24 * time.Hour)
}
