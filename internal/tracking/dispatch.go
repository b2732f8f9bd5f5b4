package tracking

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hitoshi/newcomers/internal/model"
)

// Store は追跡リストの読み書きインターフェース。
type Store interface {
	// ListTracked は範囲内の追跡アイテムを全件返す。
	ListTracked(ctx context.Context, scope model.TrackingScope) ([]model.TrackedItem, error)
	// CreateTracked は追跡アイテムを作成する。既に存在する場合は CreateOutcomeConflict を返す。
	CreateTracked(ctx context.Context, req model.TrackedItemRequest) (model.CreateOutcome, error)
}

// Notifier は歓迎メールの送信インターフェース。
type Notifier interface {
	SendWelcome(ctx context.Context, employee model.ResolvedEmployee) error
}

// NotifyFailure は追跡アイテム作成後に歓迎メールの送信に失敗した従業員。
type NotifyFailure struct {
	Employee model.ResolvedEmployee
	Err      error
}

// DispatchResult は追跡アイテム作成と通知の結果。
type DispatchResult struct {
	Created        []model.ResolvedEmployee
	Conflicts      []model.ResolvedEmployee
	Notified       []model.ResolvedEmployee
	NotifyFailures []NotifyFailure
	// MissingEmail は個人メールアドレスがないため追跡アイテムを作成しなかった従業員。
	// 名簿が修正されれば次回以降のサイクルで作成対象になる。
	MissingEmail []model.ResolvedEmployee
}

// Dispatcher は追跡アイテムの作成と歓迎メールの送信を行う。
type Dispatcher struct {
	store      Store
	notifier   Notifier
	logger     *slog.Logger
	expiryDays int
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
// expiryDays は追跡アイテムの有効期限（開始日からの日数）。
func NewDispatcher(store Store, notifier Notifier, logger *slog.Logger, expiryDays int) *Dispatcher {
	return &Dispatcher{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		expiryDays: expiryDays,
	}
}

// Dispatch は従業員ごとに追跡アイテムを作成してから歓迎メールを送る。
// 作成に失敗した従業員にはメールを送らず、その時点でサイクルを中断して
// TrackingCreateError を返す（作成済みの記録がなければ次回の重複排除で検出できないため）。
// 作成済みの従業員への送信失敗は記録のみ行い、再送はしない。
// 個人メールアドレスのない従業員は作成せずに MissingEmail に入れる。
func (d *Dispatcher) Dispatch(ctx context.Context, plan *Plan) (*DispatchResult, error) {
	result := &DispatchResult{}

	for _, e := range plan.ToCreate {
		if strings.TrimSpace(e.PersonalEmail) == "" {
			d.logger.Warn("個人メールアドレスがないため追跡アイテムの作成を保留します",
				slog.Int("employee_id", e.EmployeeID),
			)
			result.MissingEmail = append(result.MissingEmail, e)
			continue
		}

		outcome, err := d.store.CreateTracked(ctx, model.TrackedItemRequest{
			EmployeeID:     e.EmployeeID,
			DisplayName:    e.DisplayName,
			DirectoryID:    e.DirectoryID,
			ExpirationDate: e.StartDate.AddDays(d.expiryDays),
		})
		if errors.Is(err, model.ErrConflict) {
			outcome, err = model.CreateOutcomeConflict, nil
		}
		if err != nil {
			d.logger.Error("追跡アイテムの作成に失敗したため通知を中止します",
				slog.Int("employee_id", e.EmployeeID),
				slog.String("directory_id", e.DirectoryID),
				slog.String("error", err.Error()),
			)
			return result, model.NewTrackingCreateError(e.EmployeeID, e.DisplayName, err)
		}

		if outcome == model.CreateOutcomeConflict {
			d.logger.Warn("追跡アイテムは既に存在するため通知をスキップします",
				slog.Int("employee_id", e.EmployeeID),
			)
			result.Conflicts = append(result.Conflicts, e)
			continue
		}
		result.Created = append(result.Created, e)

		if err := d.notifier.SendWelcome(ctx, e); err != nil {
			d.logger.Error("歓迎メールの送信に失敗しました",
				slog.Int("employee_id", e.EmployeeID),
				slog.String("error", err.Error()),
			)
			result.NotifyFailures = append(result.NotifyFailures, NotifyFailure{Employee: e, Err: err})
			continue
		}

		d.logger.Info("歓迎メールを送信しました",
			slog.Int("employee_id", e.EmployeeID),
			slog.String("start_date", e.StartDateISO()),
		)
		result.Notified = append(result.Notified, e)
	}

	return result, nil
}
