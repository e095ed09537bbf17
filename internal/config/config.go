package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
)

// SSMParameterGetter Parameter Storeからパラメータを取得するクライアント
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// Google Calendar設定
	GoogleCredentials string
	TokenFile         string
	CalendarID        string

	// LINE API設定（未設定の場合はLINE通知を行わない）
	LineChannelAccessToken string
	LineUserID             string

	// 空き時間検索の設定ファイル
	ScheduleConfigPath string
	// Parameter Storeから取得した設定（設定ファイルより優先）
	ScheduleConfigYAML string

	// その他設定
	LogLevel string
	IsLambda bool

	// AWS関連（本番環境でのみ使用）
	ssmClient SSMParameterGetter
}

// Load 環境に応じて設定を読み込み
func Load(ctx context.Context) (*Config, error) {
	// AWS Lambda環境かどうか判定
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return loadAWSConfig(ctx)
	}
	return loadLocalConfig()
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envファイルの読み込みに失敗しました: %w", err)
	}

	cfg := &Config{
		GoogleCredentials:      getEnvOrDefault("GOOGLE_CREDENTIALS", ""),
		TokenFile:              getEnvOrDefault("GOOGLE_TOKEN_FILE", "token.json"),
		CalendarID:             getEnvOrDefault("CALENDAR_ID", "primary"),
		LineChannelAccessToken: getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LineUserID:             getEnvOrDefault("LINE_USER_ID", ""),
		ScheduleConfigPath:     getEnvOrDefault("SCHEDULE_CONFIG", "config.yaml"),
		LogLevel:               getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	// 認証情報が環境変数にない場合はファイルから読み込む
	if cfg.GoogleCredentials == "" {
		path := getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("GOOGLE_CREDENTIALS環境変数が設定されていません (%s も読み込めません: %w)", path, err)
		}
		cfg.GoogleCredentials = string(data)
	}

	if err := cfg.ValidateGoogleCredentials(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig(ctx context.Context) (*Config, error) {
	// AWS設定を初期化
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	cfg := &Config{
		CalendarID: getEnvOrDefault("CALENDAR_ID", "primary"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "INFO"),
		IsLambda:   true,
		ssmClient:  ssm.NewFromConfig(awsConfig),
	}

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(ctx); err != nil {
		return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %w", err)
	}

	return cfg, nil
}

// loadFromParameterStore Parameter Storeから機密情報と空き時間検索の設定を読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	params := []struct {
		envKey       string
		defaultName  string
		target       *string
		errorSubject string
	}{
		{"SSM_GOOGLE_CREDS_PARAM", "/google-calendar-free-slots/google-creds", &c.GoogleCredentials, "Google認証情報"},
		{"SSM_LINE_TOKEN_PARAM", "/google-calendar-free-slots/line-channel-access-token", &c.LineChannelAccessToken, "LINE Channel Access Token"},
		{"SSM_LINE_USER_ID_PARAM", "/google-calendar-free-slots/line-user-id", &c.LineUserID, "LINE User ID"},
		{"SSM_CALENDAR_ID_PARAM", "/google-calendar-free-slots/calendar-id", &c.CalendarID, "カレンダーID"},
		{"SSM_SCHEDULE_CONFIG_PARAM", "/google-calendar-free-slots/schedule-config", &c.ScheduleConfigYAML, "空き時間検索の設定"},
	}

	for _, p := range params {
		name := getEnvOrDefault(p.envKey, p.defaultName)
		value, err := c.getParameter(ctx, name, true)
		if err != nil {
			return fmt.Errorf("%sの取得に失敗しました: %w", p.errorSubject, err)
		}
		*p.target = value
	}

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// ValidateGoogleCredentials Google認証情報がJSONオブジェクトかを検証
func (c *Config) ValidateGoogleCredentials() error {
	var credentials map[string]json.RawMessage
	if err := json.Unmarshal([]byte(c.GoogleCredentials), &credentials); err != nil {
		return fmt.Errorf("Google認証情報のJSON解析に失敗しました: %w", err)
	}
	return nil
}

// LoadSchedule 空き時間検索の設定を読み込み
func (c *Config) LoadSchedule() (*Schedule, error) {
	if c.ScheduleConfigYAML != "" {
		return ParseScheduleConfig(strings.NewReader(c.ScheduleConfigYAML))
	}
	return LoadScheduleConfig(c.ScheduleConfigPath)
}

// LINEEnabled LINE通知に必要な設定が揃っているか
func (c *Config) LINEEnabled() bool {
	return c.LineChannelAccessToken != "" && c.LineUserID != ""
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
