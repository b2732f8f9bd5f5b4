package roster

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/hitoshi/newcomers/internal/model"
)

// Window は開始日ウィンドウの設定。
// 月・火・土・日開始は今日から前方 ForwardDays 日以内、
// 水・木・金開始は開始日の BackwardDays 日前から開始日当日までを対象とする。
// 平日開始は資格情報の有効化に数日かかるため、早めに案内を出す必要がある。
type Window struct {
	ForwardDays  int
	BackwardDays int
}

// Contains は開始日 start が今日 today に対してウィンドウ内かを判定する。
func (w Window) Contains(today, start civil.Date) bool {
	switch start.In(time.UTC).Weekday() {
	case time.Wednesday, time.Thursday, time.Friday:
		return !today.Before(start.AddDays(-w.BackwardDays)) && !today.After(start)
	default:
		return !start.Before(today) && !start.After(today.AddDays(w.ForwardDays))
	}
}

// Selection は開始日ウィンドウの判定結果。
type Selection struct {
	// Records はウィンドウ内のレコード。StartDate は必ず設定済み。
	Records []model.OnboardingRecord
	// Skipped は開始日を解析できずに除外した行のエラー。
	Skipped []*model.PipelineError
}

// Selector は正規化済みレコードから開始日ウィンドウ内のものを選ぶ。
type Selector struct {
	window      Window
	dateLayout  string
	haltOnEmpty bool
}

// NewSelector はSelectorの新しいインスタンスを生成する。
// haltOnEmpty が true の場合、対象が0件なら NoActionableRecordsError を返す。
func NewSelector(window Window, dateLayout string, haltOnEmpty bool) *Selector {
	if dateLayout == "" {
		dateLayout = DefaultPolicy().DateLayout
	}
	return &Selector{
		window:      window,
		dateLayout:  dateLayout,
		haltOnEmpty: haltOnEmpty,
	}
}

// Select はウィンドウ内のレコードを元の順序のまま返す。
// テキストの開始日は dateLayout で解析し、失敗した行は Skipped に記録して処理を続ける。
func (s *Selector) Select(sheet string, today civil.Date, records []model.OnboardingRecord) (*Selection, error) {
	sel := &Selection{}

	for _, rec := range records {
		start, err := s.startDate(rec)
		if err != nil {
			sel.Skipped = append(sel.Skipped, err.WithSheet(sheet))
			continue
		}
		rec.StartDate = start
		if s.window.Contains(today, start) {
			sel.Records = append(sel.Records, rec)
		}
	}

	if len(sel.Records) == 0 && s.haltOnEmpty {
		return sel, model.NewNoActionableRecordsError(sheet)
	}
	return sel, nil
}

// startDate はレコードの開始日を返す。日付型でなければテキストを解析する。
func (s *Selector) startDate(rec model.OnboardingRecord) (civil.Date, *model.PipelineError) {
	if rec.StartDate.IsValid() {
		return rec.StartDate, nil
	}
	t, err := time.Parse(s.dateLayout, rec.StartDateText)
	if err != nil {
		return civil.Date{}, model.NewDateParseError(rec.Row, rec.EmployeeID, rec.StartDateText, err)
	}
	return civil.DateOf(t), nil
}
