package model

import (
	"errors"
	"fmt"
)

// PipelineError はオンボーディング処理の統一エラーフォーマットを表す。
// どのシート・行・従業員で発生したかをメッセージに含める。
type PipelineError struct {
	Code       string // エラーコード
	Message    string // エラーメッセージ
	Sheet      string // 対象シート名（不明な場合は空）
	Row        int    // 対象行番号（不明な場合は0）
	EmployeeID int    // 対象従業員ID（不明な場合は0）
	Err        error  // 原因となったエラー
}

// Error はerrorインターフェースを実装する。
func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap は原因エラーを返す。
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is はコードが一致するPipelineErrorを同一とみなす。
// errors.Is(err, &PipelineError{Code: ErrCodeEmptyInput}) の形で判定できる。
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// 定義済みエラーコード
const (
	ErrCodeEmptyInput           = "EMPTY_INPUT"
	ErrCodeTypeConversion       = "TYPE_CONVERSION"
	ErrCodeDateParse            = "DATE_PARSE"
	ErrCodeNoActionableRecords  = "NO_ACTIONABLE_RECORDS"
	ErrCodeTrackingCreateFailed = "TRACKING_CREATE_FAILED"
	ErrCodeVerificationMismatch = "VERIFICATION_MISMATCH"
)

var (
	// ErrNotFound はディレクトリに利用可能なIDが存在しないことを示す。
	ErrNotFound = errors.New("identity not found")
	// ErrConflict は追跡リストに同じアイテムが既に存在することを示す。
	ErrConflict = errors.New("tracked item already exists")
	// ErrAddressValidation はジオコーダが住所を検証できなかったことを示す。
	ErrAddressValidation = errors.New("address validation failed")
)

// NewEmptyInputError は空シートエラーを生成する。
func NewEmptyInputError(sheet string) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeEmptyInput,
		Message: fmt.Sprintf("シート %q にデータ行がありません", sheet),
		Sheet:   sheet,
	}
}

// NewTypeConversionError は従業員IDの数値変換エラーを生成する。
func NewTypeConversionError(sheet string, row int, value any) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeTypeConversion,
		Message: fmt.Sprintf("シート %q の %d 行目: 従業員IDを整数に変換できません: %v", sheet, row, value),
		Sheet:   sheet,
		Row:     row,
	}
}

// NewDateParseError は開始日のパースエラーを生成する。
func NewDateParseError(row, employeeID int, text string, err error) *PipelineError {
	return &PipelineError{
		Code:       ErrCodeDateParse,
		Message:    fmt.Sprintf("%d 行目（従業員ID %d）: 開始日 %q を解析できません", row, employeeID, text),
		Row:        row,
		EmployeeID: employeeID,
		Err:        err,
	}
}

// NewNoActionableRecordsError は処理対象の従業員が存在しないエラーを生成する。
func NewNoActionableRecordsError(sheet string) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeNoActionableRecords,
		Message: fmt.Sprintf("シート %q に開始日ウィンドウ内の従業員がいません", sheet),
		Sheet:   sheet,
	}
}

// NewTrackingCreateError は追跡アイテム作成失敗エラーを生成する。
func NewTrackingCreateError(employeeID int, displayName string, err error) *PipelineError {
	return &PipelineError{
		Code:       ErrCodeTrackingCreateFailed,
		Message:    fmt.Sprintf("従業員 %d（%s）の追跡アイテムを作成できませんでした", employeeID, displayName),
		EmployeeID: employeeID,
		Err:        err,
	}
}

// NewVerificationMismatchError はシート上の氏名とディレクトリの表示名の不一致を表すエラーを生成する。
func NewVerificationMismatchError(row, employeeID int, sheetName, directoryName string) *PipelineError {
	return &PipelineError{
		Code:       ErrCodeVerificationMismatch,
		Message:    fmt.Sprintf("%d 行目（従業員ID %d）: 氏名 %q がディレクトリの表示名 %q と一致しません", row, employeeID, sheetName, directoryName),
		Row:        row,
		EmployeeID: employeeID,
	}
}

// WithSheet はシート名を付与したコピーを返す。
func (e *PipelineError) WithSheet(sheet string) *PipelineError {
	c := *e
	c.Sheet = sheet
	if sheet != "" {
		c.Message = fmt.Sprintf("シート %q: %s", sheet, e.Message)
	}
	return &c
}
