// Package onboarding は新入社員オンボーディングの1サイクルを実行するジョブを提供する。
// 名簿シートの読み込みから追跡アイテムの作成、歓迎メール、社内レポートの送信までを
// シートごとに順番に処理する。
package onboarding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/hitoshi/newcomers/internal/identity"
	"github.com/hitoshi/newcomers/internal/metrics"
	"github.com/hitoshi/newcomers/internal/model"
	"github.com/hitoshi/newcomers/internal/notify"
	"github.com/hitoshi/newcomers/internal/roster"
	"github.com/hitoshi/newcomers/internal/tracking"
	"github.com/hitoshi/newcomers/internal/workbook"
)

// WorkbookSource は名簿ブックのダウンロードインターフェース。
type WorkbookSource interface {
	DownloadWorkbook(ctx context.Context) ([]byte, error)
}

// CredentialSource は資格情報リストの取得インターフェース。
type CredentialSource interface {
	ListCredentials(ctx context.Context) ([]model.Credential, error)
}

// Geocoder は住所検証インターフェース。検証に失敗した場合は model.ErrAddressValidation を返す。
type Geocoder interface {
	ValidateAddress(ctx context.Context, address string) (string, error)
}

// Mailer は社内レポートの送信インターフェース。
type Mailer interface {
	Send(ctx context.Context, to []string, r notify.Report) error
}

// Recipients はレポートごとの宛先。空のレポートは送信しない。
type Recipients struct {
	Shipment     []string
	SelfPickup   []string
	Equipment    []string
	Leavers      []string
	Verification []string
}

// Config はジョブの動作設定。
type Config struct {
	Policy             roster.Policy
	Window             roster.Window
	HaltOnEmptyWindow  bool
	TriggerWindowDays  int
	TrackingExpiryDays int
	SheetLookaheadDays int
	Location           *time.Location
	FallbackLink       string
	Scope              model.TrackingScope
	Recipients         Recipients
	LeaverResetNote    string
}

// Deps はジョブが利用する外部サービス。
type Deps struct {
	Workbooks   WorkbookSource
	Directory   identity.Directory
	Credentials CredentialSource
	Tracking    tracking.Store
	Welcome     tracking.Notifier
	Geocoder    Geocoder
	Mailer      Mailer
	Metrics     metrics.MetricsCollector
	Logger      *slog.Logger
}

// Job はオンボーディングサイクルを実行する。
type Job struct {
	deps       Deps
	cfg        Config
	normalizer *roster.Normalizer
	selector   *roster.Selector
	resolver   *identity.Resolver
	dedup      *tracking.Deduplicator
	dispatcher *tracking.Dispatcher
	now        func() time.Time

	mu      sync.Mutex
	lastErr error
}

// NewJob はJobの新しいインスタンスを生成する。
// Location が未設定の場合はUTCを使用する。
func NewJob(deps Deps, cfg Config) *Job {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Job{
		deps:       deps,
		cfg:        cfg,
		normalizer: roster.NewNormalizer(cfg.Policy),
		selector:   roster.NewSelector(cfg.Window, cfg.Policy.DateLayout, cfg.HaltOnEmptyWindow),
		resolver:   identity.NewResolver(deps.Directory, deps.Logger),
		dedup:      tracking.NewDeduplicator(cfg.TriggerWindowDays),
		dispatcher: tracking.NewDispatcher(deps.Tracking, deps.Welcome, deps.Logger, cfg.TrackingExpiryDays),
		now:        time.Now,
	}
}

// Start は指定間隔のティッカーでサイクルを実行する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.deps.Logger.Info("オンボーディングジョブを開始しました",
		slog.Duration("interval", interval),
	)

	j.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			j.deps.Logger.Info("オンボーディングジョブを停止しました")
			return
		case <-ticker.C:
			j.runAndLog(ctx)
		}
	}
}

func (j *Job) runAndLog(ctx context.Context) {
	if err := j.RunOnce(ctx); err != nil {
		j.deps.Logger.Error("オンボーディングサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// Healthy は直近のサイクルの結果を返す。まだ実行していない場合はnil。
func (j *Job) Healthy() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

// RunOnce は対象シートを順番に1回ずつ処理する。
// シートの処理に失敗しても次のシートに進み、失敗があった場合はまとめてエラーを返す。
// 開始日ウィンドウ内の従業員がいないシートは警告のみで失敗とはしない。
func (j *Job) RunOnce(ctx context.Context) (err error) {
	start := time.Now()
	logger := j.deps.Logger.With(slog.String("run_id", uuid.NewString()))

	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultFailed
		}
		j.deps.Metrics.RecordCycle(result, time.Since(start))

		j.mu.Lock()
		j.lastErr = err
		j.mu.Unlock()
	}()

	now := j.now().In(j.cfg.Location)
	today := civil.DateOf(now)
	sheets := roster.DueSheets(now, j.cfg.SheetLookaheadDays)

	logger.Info("オンボーディングサイクルを開始します",
		slog.String("today", today.String()),
		slog.Any("sheets", sheets),
	)

	data, err := j.deps.Workbooks.DownloadWorkbook(ctx)
	if err != nil {
		return fmt.Errorf("failed to download workbook: %w", err)
	}
	wb, err := workbook.Open(bytes.NewReader(data), j.cfg.Policy.Columns.StartDate)
	if err != nil {
		return err
	}
	defer wb.Close()

	var errs []error
	for _, name := range sheets {
		sheetLogger := logger.With(slog.String("sheet", name))
		if err := j.processSheet(ctx, sheetLogger, wb, name, today); err != nil {
			if errors.Is(err, &model.PipelineError{Code: model.ErrCodeNoActionableRecords}) {
				sheetLogger.Warn("開始日ウィンドウ内の従業員がいないためシートの処理を終了します",
					slog.String("error", err.Error()),
				)
				continue
			}
			sheetLogger.Error("シートの処理に失敗しました",
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("sheet %q: %w", name, err))
		}
	}

	logger.Info("オンボーディングサイクルが完了しました",
		slog.Int("sheet_count", len(sheets)),
		slog.Int("failed_sheets", len(errs)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return errors.Join(errs...)
}

// processSheet は1シート分のパイプラインを実行する。
func (j *Job) processSheet(ctx context.Context, logger *slog.Logger, wb *workbook.Workbook, name string, today civil.Date) error {
	sheet, ok := wb.FindSheet(name)
	if !ok {
		logger.Warn("シートが見つからないためスキップします")
		return nil
	}

	rows, err := wb.LoadSheet(sheet)
	if err != nil {
		return err
	}

	normalized, err := j.normalizer.Normalize(sheet, rows)
	if err != nil {
		return err
	}
	j.recordDropped(logger, normalized.Dropped)

	sel, err := j.selector.Select(sheet, today, normalized.Records)
	for _, skipped := range sel.Skipped {
		logger.Warn("開始日を解析できない行を除外しました",
			slog.Int("row", skipped.Row),
			slog.Int("employee_id", skipped.EmployeeID),
			slog.String("error", skipped.Error()),
		)
	}
	j.deps.Metrics.RecordDateParseFailures(len(sel.Skipped))
	if err != nil {
		return err
	}
	j.deps.Metrics.RecordRecordsSelected(len(sel.Records))

	records := j.validateAddresses(ctx, logger, sel.Records)

	resolved := j.resolver.ResolveAll(ctx, records)
	j.recordResolutions(resolved)

	listing, err := j.deps.Credentials.ListCredentials(ctx)
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}
	xref := identity.CrossReference(resolved.Employees, listing, j.cfg.FallbackLink)
	j.deps.Metrics.RecordUncredentialed(len(xref.Uncredentialed))

	items, err := j.deps.Tracking.ListTracked(ctx, j.cfg.Scope)
	if err != nil {
		return fmt.Errorf("failed to list tracked items: %w", err)
	}
	snapshot := tracking.NewSnapshot(items, j.cfg.Scope)

	tables := tracking.BuildTables(resolvedRecords(records, resolved.Employees))
	plan := j.dedup.Plan(today, xref.Employees, snapshot, tables)

	logger.Info("重複排除が完了しました",
		slog.Int("selected", len(records)),
		slog.Int("resolved", len(resolved.Employees)),
		slog.Int("to_create", len(plan.ToCreate)),
		slog.Int("already_tracked", len(plan.AlreadyTracked)),
		slog.Int("deferred", len(plan.Deferred)),
	)

	result, err := j.dispatcher.Dispatch(ctx, plan)
	j.recordDispatch(result)
	if err != nil {
		j.deps.Metrics.RecordTracking(metrics.TrackingFailed)
		return err
	}

	j.sendReports(ctx, logger, sheet, snapshot, plan, result, xref, resolved)
	return nil
}

// validateAddresses は各レコードの住所を検証し、成功した場合は整形済みの住所に置き換える。
// 失敗したレコードは元の住所のまま残す。
func (j *Job) validateAddresses(ctx context.Context, logger *slog.Logger, records []model.OnboardingRecord) []model.OnboardingRecord {
	out := make([]model.OnboardingRecord, 0, len(records))
	for _, rec := range records {
		formatted, err := j.deps.Geocoder.ValidateAddress(ctx, rec.Address)
		if err != nil {
			logger.Warn("住所を検証できませんでした",
				slog.Int("employee_id", rec.EmployeeID),
				slog.Int("row", rec.Row),
				slog.String("error", err.Error()),
			)
			j.deps.Metrics.RecordAddressValidation(metrics.ResultFailed)
			out = append(out, rec)
			continue
		}
		rec.Address = formatted
		rec.AddressValidated = true
		j.deps.Metrics.RecordAddressValidation(metrics.ResultSuccess)
		out = append(out, rec)
	}
	return out
}

// sendReports は社内レポートを送信する。送信失敗はログに残し、処理は続ける。
// 配送・自己受け取り・機材の各レポートは今回追跡アイテムを作成した場合のみ送る。
func (j *Job) sendReports(
	ctx context.Context,
	logger *slog.Logger,
	sheet string,
	snapshot tracking.Snapshot,
	plan *tracking.Plan,
	result *tracking.DispatchResult,
	xref identity.CrossReferenceResult,
	resolved *identity.ResolveResult,
) {
	var leavers []model.ResolvedEmployee
	for _, e := range xref.Uncredentialed {
		if !snapshot.Contains(e.Key()) {
			leavers = append(leavers, e)
		}
	}
	j.sendReport(ctx, logger, j.cfg.Recipients.Leavers, notify.LeaversReport(leavers, j.cfg.LeaverResetNote))

	if len(result.Created) > 0 {
		j.sendReport(ctx, logger, j.cfg.Recipients.Shipment, notify.ShipmentReport(plan.Tables.Shipments))
		j.sendReport(ctx, logger, j.cfg.Recipients.SelfPickup, notify.SelfPickupReport(plan.Tables.SelfPickups))
		j.sendReport(ctx, logger, j.cfg.Recipients.Equipment, notify.EquipmentReport(plan.Tables.Equipment))
	}

	mismatches := make([]notify.Mismatch, 0, len(resolved.Mismatches))
	for _, m := range resolved.Mismatches {
		mismatches = append(mismatches, notify.Mismatch{
			Sheet:         sheet,
			Row:           m.Record.Row,
			EmployeeID:    m.Record.EmployeeID,
			SheetName:     m.Record.Name,
			DirectoryName: m.DirectoryName,
		})
	}
	j.sendReport(ctx, logger, j.cfg.Recipients.Verification, notify.VerificationReport(mismatches))
	j.sendReport(ctx, logger, j.cfg.Recipients.Verification, notify.MissingEmailReport(sheet, result.MissingEmail))
}

func (j *Job) sendReport(ctx context.Context, logger *slog.Logger, to []string, r notify.Report) {
	if len(to) == 0 || r.Empty() {
		return
	}
	if err := j.deps.Mailer.Send(ctx, to, r); err != nil {
		logger.Error("レポートの送信に失敗しました",
			slog.String("subject", r.Subject),
			slog.String("error", err.Error()),
		)
		j.deps.Metrics.RecordNotification(metrics.KindReport, metrics.ResultFailed)
		return
	}
	j.deps.Metrics.RecordNotification(metrics.KindReport, metrics.ResultSuccess)
}

func (j *Job) recordDropped(logger *slog.Logger, dropped []roster.DroppedRow) {
	counts := make(map[roster.DropReason]int)
	for _, d := range dropped {
		counts[d.Reason]++
		logger.Debug("行を除外しました",
			slog.Int("row", d.Row),
			slog.String("reason", string(d.Reason)),
		)
	}
	for reason, n := range counts {
		j.deps.Metrics.RecordRowsDropped(string(reason), n)
	}
}

func (j *Job) recordResolutions(r *identity.ResolveResult) {
	for range r.Employees {
		j.deps.Metrics.RecordResolution(identity.OutcomeResolved.String())
	}
	for range r.Mismatches {
		j.deps.Metrics.RecordResolution(identity.OutcomeMismatch.String())
	}
	for range r.NotFound {
		j.deps.Metrics.RecordResolution(identity.OutcomeNotFound.String())
	}
}

func (j *Job) recordDispatch(r *tracking.DispatchResult) {
	if r == nil {
		return
	}
	for range r.Created {
		j.deps.Metrics.RecordTracking(metrics.TrackingCreated)
	}
	for range r.Conflicts {
		j.deps.Metrics.RecordTracking(metrics.TrackingConflict)
	}
	for range r.Notified {
		j.deps.Metrics.RecordNotification(metrics.KindWelcome, metrics.ResultSuccess)
	}
	for range r.NotifyFailures {
		j.deps.Metrics.RecordNotification(metrics.KindWelcome, metrics.ResultFailed)
	}
	for range r.MissingEmail {
		j.deps.Metrics.RecordTracking(metrics.TrackingDeferred)
	}
}

// resolvedRecords は本人確認に成功した従業員のレコードだけを元の順序で返す。
// 同じ従業員IDの行が複数ある場合は作成対象と同じく最初の行だけを使う。
func resolvedRecords(records []model.OnboardingRecord, employees []model.ResolvedEmployee) []model.OnboardingRecord {
	ids := make(map[int]bool, len(employees))
	for _, e := range employees {
		ids[e.EmployeeID] = false
	}
	var out []model.OnboardingRecord
	for _, r := range records {
		used, ok := ids[r.EmployeeID]
		if !ok || used {
			continue
		}
		ids[r.EmployeeID] = true
		out = append(out, r)
	}
	return out
}
