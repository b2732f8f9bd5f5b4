package roster

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"

	"github.com/hitoshi/newcomers/internal/model"
	"github.com/hitoshi/newcomers/internal/workbook"
)

// DropReason は正規化で行が除外された理由。
type DropReason string

const (
	// DropExcludedAddress は住所が除外語句を含む。
	DropExcludedAddress DropReason = "excluded_address"
	// DropMissingRequired は氏名・住所・従業員IDのいずれかが欠けている。
	DropMissingRequired DropReason = "missing_required"
	// DropUnsignedContract は契約が署名済みではない。
	DropUnsignedContract DropReason = "unsigned_contract"
)

// DroppedRow は除外された行の記録。
type DroppedRow struct {
	Row    int
	Reason DropReason
}

// NormalizeResult は正規化の結果。
type NormalizeResult struct {
	Records []model.OnboardingRecord
	Dropped []DroppedRow
}

// Normalizer はシートの生の行を OnboardingRecord に変換する。
type Normalizer struct {
	policy Policy
}

// NewNormalizer はNormalizerの新しいインスタンスを生成する。
func NewNormalizer(policy Policy) *Normalizer {
	return &Normalizer{policy: policy}
}

// Normalize はシートの行を順序を保ったまま正規化する。
// ルールは次の順に適用する（後段は前段の結果を前提とする）:
//  1. 住所が除外語句を含む行を除外
//  2. 氏名・住所・従業員IDが欠けた行を除外
//  3. 契約が署名済みでない行を除外
//  4. 氏名の正規化
//  5. 任意項目の既定値補完
//  6. 従業員IDの整数変換（失敗時はシート全体をエラーとする）
//  7. 電話番号の空白除去
//
// 入力が空の場合は EmptyInputError を返す。
func (n *Normalizer) Normalize(sheet string, rows []workbook.Row) (*NormalizeResult, error) {
	if len(rows) == 0 {
		return nil, model.NewEmptyInputError(sheet)
	}

	cols := n.policy.Columns
	result := &NormalizeResult{}

	for i, row := range rows {
		rowNum := i + 2 // ヘッダーが1行目

		address := cellString(row[cols.Address])
		if n.isExcludedAddress(address) {
			result.Dropped = append(result.Dropped, DroppedRow{Row: rowNum, Reason: DropExcludedAddress})
			continue
		}

		name := cellString(row[cols.Name])
		rawID, hasID := row[cols.EmployeeID]
		if isBlank(name) || isBlank(address) || !hasID || isBlank(cellString(rawID)) {
			result.Dropped = append(result.Dropped, DroppedRow{Row: rowNum, Reason: DropMissingRequired})
			continue
		}

		contract := cellString(row[cols.ContractStatus])
		if contract != n.policy.SignedStatus {
			result.Dropped = append(result.Dropped, DroppedRow{Row: rowNum, Reason: DropUnsignedContract})
			continue
		}

		rec := model.OnboardingRecord{
			Row:                rowNum,
			Name:               NormalizeName(name),
			Address:            address,
			PersonalEmail:      strings.TrimSpace(cellString(row[cols.PersonalEmail])),
			EquipmentKind:      withDefault(cellString(row[cols.EquipmentKind]), n.policy.DefaultEquipmentKind),
			PhoneExtensionKind: withDefault(cellString(row[cols.PhoneExtensionKind]), n.policy.DefaultPhoneExtensionKind),
			DeliveryNote:       withDefault(cellString(row[cols.DeliveryNote]), n.policy.DefaultDeliveryNote),
			ContractStatus:     contract,
		}

		id, ok := coerceInt(rawID)
		if !ok {
			return nil, model.NewTypeConversionError(sheet, rowNum, rawID)
		}
		rec.EmployeeID = id

		rec.Phone = stripSpaces(cellString(row[cols.Phone]))

		switch v := row[cols.StartDate].(type) {
		case time.Time:
			rec.StartDate = civil.DateOf(v)
		case civil.Date:
			rec.StartDate = v
		default:
			rec.StartDateText = strings.TrimSpace(cellString(v))
		}

		rec.SelfPickup = n.IsSelfPickup(rec.DeliveryNote)

		result.Records = append(result.Records, rec)
	}

	return result, nil
}

// IsSelfPickup は配送メモが自己受け取りの予約値かどうかを判定する。
func (n *Normalizer) IsSelfPickup(note string) bool {
	if n.policy.SelfPickupNote == "" {
		return false
	}
	return fold(note) == fold(n.policy.SelfPickupNote)
}

// Row は正規化済みレコードをシートの行形式に戻す。
// 正規化済みの行を再度 Normalize しても結果が変わらないことの確認に使う。
func (n *Normalizer) Row(r model.OnboardingRecord) workbook.Row {
	cols := n.policy.Columns
	row := workbook.Row{
		cols.EmployeeID:         strconv.Itoa(r.EmployeeID),
		cols.Name:               r.Name,
		cols.Address:            r.Address,
		cols.EquipmentKind:      r.EquipmentKind,
		cols.PhoneExtensionKind: r.PhoneExtensionKind,
		cols.DeliveryNote:       r.DeliveryNote,
		cols.ContractStatus:     r.ContractStatus,
	}
	if r.Phone != "" {
		row[cols.Phone] = r.Phone
	}
	if r.PersonalEmail != "" {
		row[cols.PersonalEmail] = r.PersonalEmail
	}
	if r.StartDate.IsValid() {
		row[cols.StartDate] = r.StartDate.In(time.UTC)
	} else if r.StartDateText != "" {
		row[cols.StartDate] = r.StartDateText
	}
	return row
}

// isExcludedAddress は住所に除外語句が含まれるかを大文字小文字・アクセントを無視して判定する。
func (n *Normalizer) isExcludedAddress(address string) bool {
	if address == "" {
		return false
	}
	folded := fold(address)
	for _, term := range n.policy.ExcludedAddressTerms {
		t := fold(term)
		if t != "" && strings.Contains(folded, t) {
			return true
		}
	}
	return false
}

// cellString はセル値を文字列として返す。欠損は空文字列。
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.DateOnly)
	case civil.Date:
		return x.String()
	default:
		return ""
	}
}

// coerceInt は従業員IDを整数に変換する。小数部を持つ値や数値でない値は失敗とする。
func coerceInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func withDefault(v, def string) string {
	if isBlank(v) {
		return def
	}
	return v
}

// stripSpaces は空白文字をすべて取り除く。
func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
