package workbook

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// buildWorkbook はテスト用のExcelブックをメモリ上に生成する。
func buildWorkbook(t *testing.T, sheet string, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet がエラーを返した: %v", err)
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			t.Fatalf("DeleteSheet がエラーを返した: %v", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName がエラーを返した: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow がエラーを返した: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write がエラーを返した: %v", err)
	}
	return &buf
}

func TestLoadSheet_MapsHeadersToCells(t *testing.T) {
	buf := buildWorkbook(t, "June 2024", [][]any{
		{"employeeID", "name", "address"},
		{"101", "Jan Kowalski", "Warszawa"},
	})

	wb, err := Open(buf)
	if err != nil {
		t.Fatalf("Open がエラーを返した: %v", err)
	}
	defer wb.Close()

	rows, err := wb.LoadSheet("June 2024")
	if err != nil {
		t.Fatalf("LoadSheet がエラーを返した: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("行数 = %d, want 1", len(rows))
	}
	if rows[0]["name"] != "Jan Kowalski" {
		t.Errorf("name = %v, want Jan Kowalski", rows[0]["name"])
	}
	if rows[0]["employeeID"] != "101" {
		t.Errorf("employeeID = %v, want 101", rows[0]["employeeID"])
	}
}

func TestLoadSheet_SkipsEmptyCellsAndRows(t *testing.T) {
	buf := buildWorkbook(t, "Sheet1", [][]any{
		{"employeeID", "name", "laptop"},
		{"1", "Anna", ""},
		{"", "", ""},
		{"2", "Piotr", "mac"},
	})

	wb, err := Open(buf)
	if err != nil {
		t.Fatalf("Open がエラーを返した: %v", err)
	}
	defer wb.Close()

	rows, err := wb.LoadSheet("Sheet1")
	if err != nil {
		t.Fatalf("LoadSheet がエラーを返した: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("行数 = %d, want 2", len(rows))
	}
	if _, ok := rows[0]["laptop"]; ok {
		t.Error("空セルはキーを持ってはならない")
	}
	if rows[1]["laptop"] != "mac" {
		t.Errorf("laptop = %v, want mac", rows[1]["laptop"])
	}
}

func TestLoadSheet_ConvertsDateColumns(t *testing.T) {
	start := time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)
	buf := buildWorkbook(t, "Sheet1", [][]any{
		{"employeeID", "start date"},
		{"1", start},
		{"2", "14.06.2024"},
	})

	wb, err := Open(buf, "start date")
	if err != nil {
		t.Fatalf("Open がエラーを返した: %v", err)
	}
	defer wb.Close()

	rows, err := wb.LoadSheet("Sheet1")
	if err != nil {
		t.Fatalf("LoadSheet がエラーを返した: %v", err)
	}

	got, ok := rows[0]["start date"].(time.Time)
	if !ok {
		t.Fatalf("start date の型 = %T, want time.Time", rows[0]["start date"])
	}
	if !got.Equal(start) {
		t.Errorf("start date = %v, want %v", got, start)
	}

	if rows[1]["start date"] != "14.06.2024" {
		t.Errorf("テキストの日付はそのまま返すべき: got %v", rows[1]["start date"])
	}
}

func TestFindSheet_IgnoresCaseAndSpaces(t *testing.T) {
	buf := buildWorkbook(t, "June 2024", [][]any{{"name"}})

	wb, err := Open(buf)
	if err != nil {
		t.Fatalf("Open がエラーを返した: %v", err)
	}
	defer wb.Close()

	name, ok := wb.FindSheet("  JUNE 2024 ")
	if !ok {
		t.Fatal("シートが見つかるべき")
	}
	if name != "June 2024" {
		t.Errorf("シート名 = %q, want %q", name, "June 2024")
	}

	if _, ok := wb.FindSheet("july 2024"); ok {
		t.Error("存在しないシートが見つかってはならない")
	}
}

func TestOpen_InvalidData_ReturnsError(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte("not an xlsx file")))
	if err == nil {
		t.Fatal("不正なデータではエラーを返すべき")
	}
}
