// Package identity はシート上の従業員をディレクトリのIDに解決し、
// 資格情報リストと突き合わせる機能を提供する。
package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/newcomers/internal/model"
	"github.com/hitoshi/newcomers/internal/roster"
)

// Directory は従業員IDからディレクトリ上の正規IDを引くインターフェース。
// 利用可能なIDが存在しない場合は model.ErrNotFound を返す。
type Directory interface {
	FindIdentity(ctx context.Context, employeeID int) (model.Identity, error)
}

// Outcome は本人確認の結果の種別。
type Outcome int

const (
	// OutcomeResolved は本人確認に成功した。
	OutcomeResolved Outcome = iota
	// OutcomeNotFound はディレクトリにIDが見つからなかった（取得エラーを含む）。
	OutcomeNotFound
	// OutcomeMismatch はディレクトリの表示名がシートの氏名と一致しなかった。
	OutcomeMismatch
)

// String はログ・メトリクス用のラベルを返す。
func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Resolution は1レコード分の本人確認結果。
type Resolution struct {
	Outcome  Outcome
	Record   model.OnboardingRecord
	Employee model.ResolvedEmployee // OutcomeResolved の場合のみ設定
	Err      error                  // OutcomeNotFound / OutcomeMismatch の理由
	// DirectoryName は OutcomeMismatch の場合のディレクトリ上の表示名。
	DirectoryName string
}

// ResolveResult は複数レコードの本人確認結果。
type ResolveResult struct {
	Employees  []model.ResolvedEmployee
	Mismatches []Resolution
	NotFound   []Resolution
}

// Resolver はシートのレコードをディレクトリのIDに解決する。
type Resolver struct {
	directory Directory
	logger    *slog.Logger
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(directory Directory, logger *slog.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		logger:    logger,
	}
}

// Resolve は1件のレコードを従業員IDでディレクトリに問い合わせ、表示名を照合する。
// 照合はシート側と同じ正規化を施した文字列のバイト単位の一致で行う。
// 問い合わせの失敗はNotFoundとして扱い、呼び出し元のバッチ処理を止めない。
func (r *Resolver) Resolve(ctx context.Context, rec model.OnboardingRecord) Resolution {
	ident, err := r.directory.FindIdentity(ctx, rec.EmployeeID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			r.logger.Warn("ディレクトリに従業員が見つかりません",
				slog.Int("employee_id", rec.EmployeeID),
				slog.Int("row", rec.Row),
			)
		} else {
			r.logger.Error("ディレクトリの問い合わせに失敗しました",
				slog.Int("employee_id", rec.EmployeeID),
				slog.Int("row", rec.Row),
				slog.String("error", err.Error()),
			)
		}
		return Resolution{Outcome: OutcomeNotFound, Record: rec, Err: err}
	}
	if ident.ID == "" {
		r.logger.Warn("ディレクトリが利用可能なIDを返しませんでした",
			slog.Int("employee_id", rec.EmployeeID),
			slog.Int("row", rec.Row),
		)
		return Resolution{Outcome: OutcomeNotFound, Record: rec, Err: model.ErrNotFound}
	}

	if roster.NormalizeName(ident.DisplayName) != rec.Name {
		mismatch := model.NewVerificationMismatchError(rec.Row, rec.EmployeeID, rec.Name, ident.DisplayName)
		r.logger.Error("氏名がディレクトリの表示名と一致しません",
			slog.Int("employee_id", rec.EmployeeID),
			slog.Int("row", rec.Row),
			slog.String("sheet_name", rec.Name),
			slog.String("directory_name", ident.DisplayName),
		)
		return Resolution{Outcome: OutcomeMismatch, Record: rec, Err: mismatch, DirectoryName: ident.DisplayName}
	}

	return Resolution{
		Outcome: OutcomeResolved,
		Record:  rec,
		Employee: model.ResolvedEmployee{
			DirectoryID:   ident.ID,
			DisplayName:   ident.DisplayName,
			EmployeeID:    rec.EmployeeID,
			StartDate:     rec.StartDate,
			PersonalEmail: rec.PersonalEmail,
		},
	}
}

// ResolveAll はレコードを順に1件ずつ解決し、結果を種別ごとにまとめる。
func (r *Resolver) ResolveAll(ctx context.Context, records []model.OnboardingRecord) *ResolveResult {
	result := &ResolveResult{}
	for _, rec := range records {
		res := r.Resolve(ctx, rec)
		switch res.Outcome {
		case OutcomeResolved:
			result.Employees = append(result.Employees, res.Employee)
		case OutcomeMismatch:
			result.Mismatches = append(result.Mismatches, res)
		default:
			result.NotFound = append(result.NotFound, res)
		}
	}
	return result
}
