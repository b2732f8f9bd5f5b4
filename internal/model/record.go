// Package model はドメインモデルを定義する。
package model

import (
	"strconv"

	"cloud.google.com/go/civil"
)

// OnboardingRecord は正規化を通過したスプレッドシート1行分の新入社員情報を表す。
// 生成後は EmployeeID・Name・Address が空でなく、ContractStatus が署名済みの値であることが保証される。
type OnboardingRecord struct {
	// Row はシート上の行番号（ヘッダーを1行目とする1始まり）。エラー表示に使う。
	Row int

	EmployeeID int
	// Name はダイアクリティカルマーク除去・トリム・小文字化済みの氏名。照合専用。
	Name    string
	Address string
	// AddressValidated はジオコーダで整形済みの住所に置き換えられたかどうか。
	AddressValidated bool
	Phone            string

	// StartDate はセルが日付型だった場合の開始日。テキストの場合はゼロ値のまま。
	StartDate civil.Date
	// StartDateText はセルがテキストだった場合の生の値（"2.1.2006" 形式を想定。日と月のゼロ埋めは任意）。
	StartDateText string

	PersonalEmail      string
	EquipmentKind      string
	PhoneExtensionKind string
	DeliveryNote       string
	ContractStatus     string

	// SelfPickup は DeliveryNote が自己受け取りの予約値だった場合に true。
	SelfPickup bool
}

// Key は追跡リストとの照合に使う従業員IDの文字列表現を返す。
func (r OnboardingRecord) Key() string {
	return strconv.Itoa(r.EmployeeID)
}

// Identity はディレクトリが返す正規のID情報。
type Identity struct {
	ID          string
	DisplayName string
}

// Credential は資格情報リストの1エントリ。
type Credential struct {
	EmployeeID  int
	DirectoryID string
	Link        string
}

// ResolvedEmployee は本人確認に成功した従業員を表す。
type ResolvedEmployee struct {
	DirectoryID   string
	DisplayName   string
	EmployeeID    int
	StartDate     civil.Date
	PersonalEmail string
	// CredentialLink は事前に用意された資格情報共有リンク、または既定のフォールバックリンク。
	CredentialLink string
	// Uncredentialed は資格情報リストに存在せずフォールバックリンクを割り当てた場合に true。
	Uncredentialed bool
}

// Key は追跡リストとの照合に使う従業員IDの文字列表現を返す。
func (e ResolvedEmployee) Key() string {
	return strconv.Itoa(e.EmployeeID)
}

// StartDateISO は開始日をISO形式（YYYY-MM-DD）で返す。
func (e ResolvedEmployee) StartDateISO() string {
	return e.StartDate.String()
}

// TrackedItem は追跡リスト上の既存アイテム。従業員IDの存在確認にのみ使う。
type TrackedItem struct {
	EmployeeID  string
	Title       string
	Category    string
	SubCategory string
}

// TrackedItemRequest は追跡リストに作成するアイテムの内容。
type TrackedItemRequest struct {
	EmployeeID     int
	DisplayName    string
	DirectoryID    string
	ExpirationDate civil.Date
}

// CreateOutcome は追跡アイテム作成の結果。
type CreateOutcome int

const (
	// CreateOutcomeCreated は新規に作成されたことを示す。
	CreateOutcomeCreated CreateOutcome = iota
	// CreateOutcomeConflict は同じ従業員のアイテムが既に存在したことを示す。
	CreateOutcomeConflict
)

// TrackingScope は追跡リストのうち今回のサイクルで参照する範囲。
// 空の項目は絞り込みに使わない。
type TrackingScope struct {
	Category    string
	SubCategory string
}

// Matches はアイテムが範囲に含まれるかを判定する。
func (s TrackingScope) Matches(item TrackedItem) bool {
	if s.Category != "" && item.Category != s.Category {
		return false
	}
	if s.SubCategory != "" && item.SubCategory != s.SubCategory {
		return false
	}
	return true
}
