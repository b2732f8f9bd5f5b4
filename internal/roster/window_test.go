package roster

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/hitoshi/newcomers/internal/model"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestWindow_WeekdayStartUsesBackwardRule(t *testing.T) {
	today := date(2024, time.June, 10) // 月曜
	friday := date(2024, time.June, 14)

	// 前方ルールなら対象になるが、金曜開始は後方ルールで判定する
	w := Window{ForwardDays: 5, BackwardDays: 2}
	if w.Contains(today, friday) {
		t.Error("金曜開始は開始日の2日前より前には対象にならないべき")
	}

	w = Window{ForwardDays: 5, BackwardDays: 4}
	if !w.Contains(today, friday) {
		t.Error("金曜開始は開始日の4日前から対象になるべき")
	}
}

func TestWindow_WeekendAndMondayStartUseForwardRule(t *testing.T) {
	today := date(2024, time.June, 10) // 月曜
	w := Window{ForwardDays: 7, BackwardDays: 0}

	tests := []struct {
		name  string
		start civil.Date
		want  bool
	}{
		{"当日の月曜", date(2024, time.June, 10), true},
		{"翌日の火曜", date(2024, time.June, 11), true},
		{"7日後の月曜", date(2024, time.June, 17), true},
		{"8日後の火曜", date(2024, time.June, 18), false},
		{"土曜", date(2024, time.June, 15), true},
		{"過去の日曜", date(2024, time.June, 9), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(today, tt.start); got != tt.want {
				t.Errorf("Contains(%s, %s) = %v, want %v", today, tt.start, got, tt.want)
			}
		})
	}
}

func TestWindow_WeekdayStartInPastIsExcluded(t *testing.T) {
	w := Window{ForwardDays: 25, BackwardDays: 23}
	today := date(2024, time.June, 13)
	wednesday := date(2024, time.June, 12)

	if w.Contains(today, wednesday) {
		t.Error("開始日を過ぎた水曜開始は対象外であるべき")
	}
	if !w.Contains(today, date(2024, time.June, 13)) {
		t.Error("当日の木曜開始は対象であるべき")
	}
}

func TestSelector_ParsesTextDatesAndSkipsInvalid(t *testing.T) {
	s := NewSelector(Window{ForwardDays: 10, BackwardDays: 10}, "02.01.2006", true)
	today := date(2024, time.June, 10)

	records := []model.OnboardingRecord{
		{Row: 2, EmployeeID: 1, StartDateText: "14.06.2024"},
		{Row: 3, EmployeeID: 2, StartDateText: "2024-06-14"},
		{Row: 4, EmployeeID: 3, StartDate: date(2024, time.June, 11)},
		{Row: 5, EmployeeID: 4, StartDate: date(2024, time.August, 1)},
	}

	sel, err := s.Select("june 2024", today, records)
	if err != nil {
		t.Fatalf("Select がエラーを返した: %v", err)
	}

	if len(sel.Records) != 2 {
		t.Fatalf("対象数 = %d, want 2", len(sel.Records))
	}
	if sel.Records[0].EmployeeID != 1 || sel.Records[1].EmployeeID != 3 {
		t.Errorf("対象の従業員ID = %d, %d, want 1, 3", sel.Records[0].EmployeeID, sel.Records[1].EmployeeID)
	}
	if sel.Records[0].StartDate != date(2024, time.June, 14) {
		t.Errorf("解析後の開始日 = %s, want 2024-06-14", sel.Records[0].StartDate)
	}

	if len(sel.Skipped) != 1 {
		t.Fatalf("スキップ数 = %d, want 1", len(sel.Skipped))
	}
	if sel.Skipped[0].Code != model.ErrCodeDateParse || sel.Skipped[0].Row != 3 {
		t.Errorf("スキップ = %+v, want DATE_PARSE on row 3", sel.Skipped[0])
	}
	if sel.Skipped[0].Sheet != "june 2024" {
		t.Errorf("Sheet = %q, want %q", sel.Skipped[0].Sheet, "june 2024")
	}
}

func TestSelector_DefaultLayoutAcceptsUnpaddedDates(t *testing.T) {
	s := NewSelector(Window{ForwardDays: 25, BackwardDays: 23}, "", false)
	today := date(2024, time.June, 3)

	tests := []struct {
		text string
		want civil.Date
	}{
		{"14.06.2024", date(2024, time.June, 14)},
		{"5.6.2024", date(2024, time.June, 5)},
		{"07.6.2024", date(2024, time.June, 7)},
		{"3.06.2024", date(2024, time.June, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			sel, err := s.Select("june 2024", today, []model.OnboardingRecord{
				{Row: 2, EmployeeID: 1, StartDateText: tt.text},
			})
			if err != nil {
				t.Fatalf("Select がエラーを返した: %v", err)
			}
			if len(sel.Skipped) != 0 {
				t.Fatalf("スキップ = %v, want none", sel.Skipped[0])
			}
			if len(sel.Records) != 1 {
				t.Fatalf("対象数 = %d, want 1", len(sel.Records))
			}
			if sel.Records[0].StartDate != tt.want {
				t.Errorf("開始日 = %s, want %s", sel.Records[0].StartDate, tt.want)
			}
		})
	}
}

func TestSelector_NoMatches_HaltsWhenConfigured(t *testing.T) {
	records := []model.OnboardingRecord{
		{Row: 2, EmployeeID: 1, StartDate: date(2024, time.December, 2)},
	}
	today := date(2024, time.June, 10)

	halting := NewSelector(Window{ForwardDays: 5, BackwardDays: 2}, "", true)
	_, err := halting.Select("june 2024", today, records)
	if !errors.Is(err, &model.PipelineError{Code: model.ErrCodeNoActionableRecords}) {
		t.Fatalf("NoActionableRecordsError を期待したが %v が返された", err)
	}

	lenient := NewSelector(Window{ForwardDays: 5, BackwardDays: 2}, "", false)
	sel, err := lenient.Select("june 2024", today, records)
	if err != nil {
		t.Fatalf("継続設定ではエラーを返してはならない: %v", err)
	}
	if len(sel.Records) != 0 {
		t.Errorf("対象数 = %d, want 0", len(sel.Records))
	}
}
