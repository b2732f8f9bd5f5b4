// Package tracking は追跡リストとの差分から作成すべき追跡アイテムを決定し、
// 追跡アイテムの作成と歓迎メールの送信を決められた順序で行う。
//
// 追跡リストが唯一の永続的な状態であり、同時に実行された2つのプロセスが
// 両方とも「未追跡」と読んで重複作成する競合は解消しない（既知の制約）。
// リスト側の一意制約による Conflict 応答は「処理済み」として扱う。
package tracking

import (
	"cloud.google.com/go/civil"

	"github.com/hitoshi/newcomers/internal/model"
)

// Snapshot はサイクル開始時に読み込んだ追跡済み従業員IDの集合。
type Snapshot struct {
	ids map[string]struct{}
}

// NewSnapshot は範囲内のアイテムからSnapshotを生成する。
func NewSnapshot(items []model.TrackedItem, scope model.TrackingScope) Snapshot {
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.EmployeeID == "" || !scope.Matches(item) {
			continue
		}
		ids[item.EmployeeID] = struct{}{}
	}
	return Snapshot{ids: ids}
}

// Contains は従業員IDが追跡済みかを完全一致で判定する。
func (s Snapshot) Contains(employeeID string) bool {
	_, ok := s.ids[employeeID]
	return ok
}

// Len は追跡済みIDの件数を返す。
func (s Snapshot) Len() int {
	return len(s.ids)
}

// With は指定IDを追加した新しいSnapshotを返す。元のSnapshotは変更しない。
func (s Snapshot) With(employeeIDs ...string) Snapshot {
	ids := make(map[string]struct{}, len(s.ids)+len(employeeIDs))
	for id := range s.ids {
		ids[id] = struct{}{}
	}
	for _, id := range employeeIDs {
		ids[id] = struct{}{}
	}
	return Snapshot{ids: ids}
}

// Tables は配送・自己受け取り・機材の各レポートに載せるレコード。
type Tables struct {
	Shipments   []model.OnboardingRecord
	SelfPickups []model.OnboardingRecord
	Equipment   []model.OnboardingRecord
}

// BuildTables はウィンドウ内のレコードを配送区分ごとに振り分ける。
// 機材レポートには全レコードを載せる。
func BuildTables(records []model.OnboardingRecord) Tables {
	var t Tables
	for _, r := range records {
		if r.SelfPickup {
			t.SelfPickups = append(t.SelfPickups, r)
		} else {
			t.Shipments = append(t.Shipments, r)
		}
		t.Equipment = append(t.Equipment, r)
	}
	return t
}

// Plan は重複排除の結果。
type Plan struct {
	// ToCreate は追跡アイテムの作成と歓迎メールが必要な従業員。従業員IDで一意。
	ToCreate []model.ResolvedEmployee
	// AlreadyTracked は追跡リストに既に存在した従業員。
	AlreadyTracked []model.ResolvedEmployee
	// Deferred は未追跡だが作成タイミングの前にいる従業員。
	Deferred []model.ResolvedEmployee
	// Tables は追跡済みの従業員を除いたレポート用レコード。
	Tables Tables
}

// Deduplicator は追跡リストとの差分を計算する。
type Deduplicator struct {
	triggerDays int
}

// NewDeduplicator はDeduplicatorの新しいインスタンスを生成する。
// triggerDays は開始日の何日前から追跡アイテムを作成するか（開始日ウィンドウとは独立）。
func NewDeduplicator(triggerDays int) *Deduplicator {
	return &Deduplicator{triggerDays: triggerDays}
}

// InTrigger は今日が開始日の triggerDays 日前から開始日当日までに入るかを判定する。
func (d *Deduplicator) InTrigger(today, start civil.Date) bool {
	return !today.Before(start.AddDays(-d.triggerDays)) && !today.After(start)
}

// Plan は追跡済みかどうかを Snapshot の集合演算だけで判定する。
// 同じ Snapshot に対して何度実行しても同じ結果になり、副作用は持たない。
func (d *Deduplicator) Plan(today civil.Date, employees []model.ResolvedEmployee, snapshot Snapshot, tables Tables) *Plan {
	plan := &Plan{}
	planned := make(map[string]struct{}, len(employees))

	for _, e := range employees {
		key := e.Key()
		if snapshot.Contains(key) {
			plan.AlreadyTracked = append(plan.AlreadyTracked, e)
			continue
		}
		if !d.InTrigger(today, e.StartDate) {
			plan.Deferred = append(plan.Deferred, e)
			continue
		}
		if _, dup := planned[key]; dup {
			continue
		}
		planned[key] = struct{}{}
		plan.ToCreate = append(plan.ToCreate, e)
	}

	plan.Tables = Tables{
		Shipments:   prune(tables.Shipments, snapshot),
		SelfPickups: prune(tables.SelfPickups, snapshot),
		Equipment:   prune(tables.Equipment, snapshot),
	}
	return plan
}

// CreatedKeys は ToCreate の従業員IDを返す。
func (p *Plan) CreatedKeys() []string {
	keys := make([]string, 0, len(p.ToCreate))
	for _, e := range p.ToCreate {
		keys = append(keys, e.Key())
	}
	return keys
}

func prune(records []model.OnboardingRecord, snapshot Snapshot) []model.OnboardingRecord {
	var kept []model.OnboardingRecord
	for _, r := range records {
		if snapshot.Contains(r.Key()) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
