package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/newcomers/internal/roster"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Azure AD (Graph)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// SharePoint
	DriveID                  string
	ItemID                   string
	SiteID                   string
	EmailTrackingListID      string
	NewbiesCredentialsListID string

	// Mail
	MailSender        string
	MailBCC           []string
	SendGridAPIKey    string
	WelcomeTemplateID string
	MailFromAddress   string
	MailFromName      string
	OfficeCountryCode string

	// Reports（宛先が空のレポートは送信しない）
	ShipmentReportTo     []string
	SelfPickupReportTo   []string
	EquipmentReportTo    []string
	LeaversReportTo      []string
	VerificationReportTo []string
	LeaverResetNote      string

	// Credentials
	FallbackCredentialLink string

	// Address validation
	AddressValidationAPIKey string

	// Windows
	WindowForwardDays  int
	WindowBackwardDays int
	TriggerWindowDays  int
	TrackingExpiryDays int
	HaltOnEmptyWindow  bool
	SheetLookaheadDays int
	Location           *time.Location

	// Transport
	HTTPTimeout     time.Duration
	GraphRateLimit  float64
	DownloadMaxSize int64

	// Worker
	RunInterval    time.Duration
	MetricsPort    string
	PushgatewayURL string

	// Logging
	LogLevel string

	// Roster
	Policy roster.Policy
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string
	required := func(dst *string, key string) {
		*dst = os.Getenv(key)
		if *dst == "" {
			missing = append(missing, key)
		}
	}

	required(&cfg.AzureTenantID, "AZURE_TENANT_ID")
	required(&cfg.AzureClientID, "AZURE_CLIENT_ID")
	required(&cfg.AzureClientSecret, "AZURE_CLIENT_SECRET")
	required(&cfg.DriveID, "DRIVE_ID")
	required(&cfg.ItemID, "ITEM_ID")
	required(&cfg.SiteID, "SITE_ID")
	required(&cfg.EmailTrackingListID, "EMAIL_TRACKING_LIST_ID")
	required(&cfg.NewbiesCredentialsListID, "NEWBIES_CREDENTIALS_LIST_ID")
	required(&cfg.MailSender, "MAIL_SENDER")
	required(&cfg.SendGridAPIKey, "SENDGRID_API_KEY")
	required(&cfg.WelcomeTemplateID, "WELCOME_TEMPLATE_ID")
	required(&cfg.AddressValidationAPIKey, "ADDRESS_VALIDATION_API_KEY")
	required(&cfg.FallbackCredentialLink, "FALLBACK_CREDENTIAL_LINK")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MailBCC = getEnvList("MAIL_BCC")
	cfg.MailFromAddress = getEnvString("MAIL_FROM_ADDRESS", cfg.MailSender)
	cfg.MailFromName = getEnvString("MAIL_FROM_NAME", "IT Onboarding")
	cfg.OfficeCountryCode = getEnvString("OFFICE_COUNTRY_CODE", "PL")

	cfg.ShipmentReportTo = getEnvList("SHIPMENT_REPORT_TO")
	cfg.SelfPickupReportTo = getEnvList("SELF_PICKUP_REPORT_TO")
	cfg.EquipmentReportTo = getEnvList("EQUIPMENT_REPORT_TO")
	cfg.LeaversReportTo = getEnvList("LEAVERS_REPORT_TO")
	cfg.VerificationReportTo = getEnvList("VERIFICATION_REPORT_TO")
	cfg.LeaverResetNote = getEnvString("LEAVER_RESET_NOTE", "The employee's password must be reset before the first day.")

	cfg.WindowForwardDays = getEnvInt("WINDOW_FORWARD_DAYS", 25)
	cfg.WindowBackwardDays = getEnvInt("WINDOW_BACKWARD_DAYS", 23)
	cfg.TriggerWindowDays = getEnvInt("TRIGGER_WINDOW_DAYS", 3)
	cfg.TrackingExpiryDays = getEnvInt("TRACKING_EXPIRY_DAYS", 30)
	cfg.HaltOnEmptyWindow = getEnvBool("HALT_ON_EMPTY_WINDOW", true)
	cfg.SheetLookaheadDays = getEnvInt("SHEET_LOOKAHEAD_DAYS", 6)

	tz := getEnvString("TIMEZONE", "Europe/Warsaw")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 30*time.Second)
	cfg.GraphRateLimit = getEnvFloat("GRAPH_RATE_LIMIT", 5)
	cfg.DownloadMaxSize = getEnvInt64("DOWNLOAD_MAX_SIZE", 20971520)

	cfg.RunInterval = getEnvDuration("RUN_INTERVAL", 24*time.Hour)
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.PushgatewayURL = getEnvString("PUSHGATEWAY_URL", "")

	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.Policy = roster.DefaultPolicy()
	if path := os.Getenv("POLICY_FILE"); path != "" {
		p, err := LoadPolicy(path)
		if err != nil {
			return nil, err
		}
		cfg.Policy = p
	}

	return cfg, nil
}

// LoadPolicy はYAMLファイルを読み込み、既定の名簿ポリシーに上書きして返す。
// ファイルに書かれていない項目は既定値のまま残る。
func LoadPolicy(path string) (roster.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return roster.Policy{}, fmt.Errorf("failed to read POLICY_FILE %q: %w", path, err)
	}

	var override roster.Policy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return roster.Policy{}, fmt.Errorf("failed to parse POLICY_FILE %q: %w", path, err)
	}
	return roster.DefaultPolicy().Merge(override), nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList はカンマ区切りの値を空要素を除いて返す。
func getEnvList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// getEnvInt は日数などの非負の整数を返す。負の値は既定値として扱う。
func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvDuration は正の時間を返す。0以下の値はティッカーやタイムアウトに使えないため既定値として扱う。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
