package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/newcomers/internal/config"
	"github.com/hitoshi/newcomers/internal/geocode"
	"github.com/hitoshi/newcomers/internal/graph"
	"github.com/hitoshi/newcomers/internal/logger"
	"github.com/hitoshi/newcomers/internal/metrics"
	"github.com/hitoshi/newcomers/internal/model"
	"github.com/hitoshi/newcomers/internal/notify"
	"github.com/hitoshi/newcomers/internal/roster"
	"github.com/hitoshi/newcomers/internal/security"
	"github.com/hitoshi/newcomers/internal/worker/onboarding"
)

// pushJobName はPushgatewayに送るジョブ名。
const pushJobName = "newcomers"

// cycleRunner は1サイクルを実行するジョブ。
type cycleRunner interface {
	RunOnce(ctx context.Context) error
}

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("METRICS_PORT")
		if port == "" {
			port = "9090"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("timezone", cfg.Location.String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	job := newJob(cfg, slog.Default(), metrics.NewCollector(reg))

	switch cmd {
	case CommandWorker:
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return runWorker(ctx, cfg, job, reg)
	default:
		return runOnce(ctx, cfg, job, reg)
	}
}

// newJob は設定から外部サービスのクライアントを組み立て、オンボーディングジョブを生成する。
func newJob(cfg *config.Config, log *slog.Logger, collector metrics.MetricsCollector) *onboarding.Job {
	// 1. セキュリティサービスの初期化
	guard := security.NewDownloadGuard()
	sanitizer := security.NewReportSanitizer()

	// 2. 外部APIクライアントの初期化
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	graphClient := graph.NewClient(context.Background(), graph.Config{
		TenantID:          cfg.AzureTenantID,
		ClientID:          cfg.AzureClientID,
		ClientSecret:      cfg.AzureClientSecret,
		SiteID:            cfg.SiteID,
		DriveID:           cfg.DriveID,
		ItemID:            cfg.ItemID,
		CredentialsListID: cfg.NewbiesCredentialsListID,
		TrackingListID:    cfg.EmailTrackingListID,
		MailSender:        cfg.MailSender,
		MailBCC:           cfg.MailBCC,
		WelcomeTemplateID: cfg.WelcomeTemplateID,
		RateLimit:         cfg.GraphRateLimit,
		Timeout:           cfg.HTTPTimeout,
		MaxDownloadSize:   cfg.DownloadMaxSize,
	}, guard, log)
	geocoder := geocode.NewClient(httpClient, cfg.AddressValidationAPIKey, log)

	// 3. 通知の初期化
	welcome := notify.NewWelcomeSender(httpClient, notify.WelcomeConfig{
		APIKey:            cfg.SendGridAPIKey,
		TemplateID:        cfg.WelcomeTemplateID,
		FromAddress:       cfg.MailFromAddress,
		FromName:          cfg.MailFromName,
		BCC:               cfg.MailBCC,
		OfficeCountryCode: cfg.OfficeCountryCode,
	}, log)
	mailer := notify.NewMailer(graphClient, sanitizer, log)

	// 4. ジョブの組み立て
	return onboarding.NewJob(onboarding.Deps{
		Workbooks:   graphClient,
		Directory:   graphClient,
		Credentials: graphClient,
		Tracking:    graphClient,
		Welcome:     welcome,
		Geocoder:    geocoder,
		Mailer:      mailer,
		Metrics:     collector,
		Logger:      log,
	}, onboarding.Config{
		Policy:             cfg.Policy,
		Window:             roster.Window{ForwardDays: cfg.WindowForwardDays, BackwardDays: cfg.WindowBackwardDays},
		HaltOnEmptyWindow:  cfg.HaltOnEmptyWindow,
		TriggerWindowDays:  cfg.TriggerWindowDays,
		TrackingExpiryDays: cfg.TrackingExpiryDays,
		SheetLookaheadDays: cfg.SheetLookaheadDays,
		Location:           cfg.Location,
		FallbackLink:       cfg.FallbackCredentialLink,
		Scope:              model.TrackingScope{Category: graph.TrackingCategory, SubCategory: graph.TrackingSubCategory},
		Recipients: onboarding.Recipients{
			Shipment:     cfg.ShipmentReportTo,
			SelfPickup:   cfg.SelfPickupReportTo,
			Equipment:    cfg.EquipmentReportTo,
			Leavers:      cfg.LeaversReportTo,
			Verification: cfg.VerificationReportTo,
		},
		LeaverResetNote: cfg.LeaverResetNote,
	})
}

// runOnce は1サイクルだけ実行する。
// PUSHGATEWAY_URLが設定されている場合は、結果にかかわらずメトリクスを送信する。
func runOnce(ctx context.Context, cfg *config.Config, job cycleRunner, gatherer prometheus.Gatherer) error {
	runErr := job.RunOnce(ctx)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, pushJobName, gatherer); err != nil {
			slog.Error("メトリクスの送信に失敗しました",
				slog.String("pushgateway_url", cfg.PushgatewayURL),
				slog.String("error", err.Error()),
			)
		}
	}

	if runErr != nil {
		return fmt.Errorf("onboarding cycle failed: %w", runErr)
	}
	slog.Info("onboarding cycle completed")
	return nil
}

// runWorker はワーカーモードで起動する。
// オンボーディングジョブと運用向けHTTPサーバーを並行して動かし、
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runWorker(ctx context.Context, cfg *config.Config, job *onboarding.Job, gatherer prometheus.Gatherer) error {
	server := &http.Server{
		Addr:         ":" + cfg.MetricsPort,
		Handler:      metrics.SetupOpsRouter(gatherer, job.Healthy, slog.Default()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("ops server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		job.Start(ctx, cfg.RunInterval)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
