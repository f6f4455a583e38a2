package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone      = "Asia/Seoul"
	fallbackTimezone     = "UTC"
	configPathEnv        = "MOMENTUM_SCANNER_CONFIG"
	databaseDSNEnv       = "DATABASE_DSN"
	naverClientIDEnv     = "NAVER_CLIENT_ID"
	naverClientSecretEnv = "NAVER_CLIENT_SECRET"
	openAIAPIKeyEnv      = "OPENAI_API_KEY"
	openAIModelEnv       = "OPENAI_MODEL"
	filingServiceURLEnv  = "FILING_SERVICE_URL"
	redisAddrEnv         = "REDIS_ADDR"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
	httpAddrEnv          = "HTTP_ADDR"
	logLevelEnv          = "LOG_LEVEL"
	entitiesCSVEnv       = "ENTITIES_CSV"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Search        SearchConfig       `yaml:"search"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Entities      EntitiesConfig     `yaml:"entities"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Filings       FilingsConfig      `yaml:"filings"`
	Cache         CacheConfig        `yaml:"cache"`
	Notifications NotificationConfig `yaml:"notifications"`
	Server        ServerConfig       `yaml:"server"`
}

// LoggingConfig selects slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the watchlist is re-analyzed.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	Watchlist      []string       `yaml:"watchlist"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SearchConfig lists the enabled search strategies and their settings.
type SearchConfig struct {
	Providers []string    `yaml:"providers"`
	Naver     NaverConfig `yaml:"naver"`
}

// NaverConfig wires the Naver news search API.
type NaverConfig struct {
	Endpoint          string  `yaml:"endpoint"`
	ClientID          string  `yaml:"clientId"`
	ClientSecret      string  `yaml:"clientSecret"`
	Display           int     `yaml:"display"`
	MaxStart          int     `yaml:"maxStart"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

// EntitiesConfig points at the list of known company names.
type EntitiesConfig struct {
	CSVPath string `yaml:"csvPath"`
}

// ChatGPTConfig defines how to contact the summarization model.
type ChatGPTConfig struct {
	BaseURL            string  `yaml:"baseUrl"`
	Model              string  `yaml:"model"`
	APIKey             string  `yaml:"apiKey"`
	Temperature        float32 `yaml:"temperature"`
	NewsPrompt         string  `yaml:"newsPrompt"`
	FilingPrompt       string  `yaml:"filingPrompt"`
	NewsContextChars   int     `yaml:"newsContextChars"`
	FilingContextChars int     `yaml:"filingContextChars"`
}

// FilingsConfig points at the external filing retrieval service.
type FilingsConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CacheConfig enables the Redis article body cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"keyPrefix"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ServerConfig configures the results API listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// PipelineConfig holds the thresholds of one news curation run.
type PipelineConfig struct {
	LookbackMonths      int           `yaml:"lookbackMonths"`
	MaxConcurrent       int           `yaml:"maxConcurrent"`
	RequestTimeout      time.Duration `yaml:"requestTimeout"`
	RetryCount          int           `yaml:"retryCount"`
	RetryBackoff        time.Duration `yaml:"retryBackoff"`
	MinBodyLength       int           `yaml:"minBodyLength"`
	MaxOtherEntities    int           `yaml:"maxOtherEntities"`
	SimilarityThreshold float64       `yaml:"similarityThreshold"`
	HeadWindowSize      int           `yaml:"headWindowSize"`
	CoMentionWindow     int           `yaml:"coMentionWindow"`
	Keywords            []string      `yaml:"keywords"`
	TitleDenylist       []string      `yaml:"titleDenylist"`
	BodyDenylist        []string      `yaml:"bodyDenylist"`
}

// Cutoff returns the oldest publication time admitted relative to now.
func (p PipelineConfig) Cutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(p.LookbackMonths*30) * 24 * time.Hour)
}

// Validate rejects thresholds that cannot describe a meaningful run.
func (p PipelineConfig) Validate() error {
	var errs []error
	if p.LookbackMonths < 1 {
		errs = append(errs, fmt.Errorf("lookbackMonths must be positive, got %d", p.LookbackMonths))
	}
	if p.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("maxConcurrent must be positive, got %d", p.MaxConcurrent))
	}
	if p.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("requestTimeout must be positive, got %s", p.RequestTimeout))
	}
	if p.RetryCount < 1 {
		errs = append(errs, fmt.Errorf("retryCount must be positive, got %d", p.RetryCount))
	}
	if p.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("retryBackoff must not be negative, got %s", p.RetryBackoff))
	}
	if p.MinBodyLength < 0 || p.HeadWindowSize < 1 || p.CoMentionWindow < 1 {
		errs = append(errs, fmt.Errorf("body windows must be positive (min=%d head=%d co-mention=%d)",
			p.MinBodyLength, p.HeadWindowSize, p.CoMentionWindow))
	}
	if p.MaxOtherEntities < 1 {
		errs = append(errs, fmt.Errorf("maxOtherEntities must be positive, got %d", p.MaxOtherEntities))
	}
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarityThreshold must be in (0, 1], got %.2f", p.SimilarityThreshold))
	}
	if len(p.Keywords) == 0 {
		errs = append(errs, errors.New("at least one search keyword is required"))
	}
	return errors.Join(errs...)
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg, err := Parse(raw)
			if err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Search.Providers) == 0 {
		cfg.Search.Providers = defaultConfig().Search.Providers
	}

	return cfg
}

// Parse overlays YAML onto the defaults; keys absent from raw keep their default.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	cfg.bindTimezone()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{databaseDSNEnv, &c.Database.DSN},
		{naverClientIDEnv, &c.Search.Naver.ClientID},
		{naverClientSecretEnv, &c.Search.Naver.ClientSecret},
		{openAIAPIKeyEnv, &c.ChatGPT.APIKey},
		{openAIModelEnv, &c.ChatGPT.Model},
		{filingServiceURLEnv, &c.Filings.Endpoint},
		{redisAddrEnv, &c.Cache.RedisAddr},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{httpAddrEnv, &c.Server.Addr},
		{logLevelEnv, &c.Logging.Level},
		{entitiesCSVEnv, &c.Entities.CSVPath},
	}

	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, fallbackTimezone)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{DSN: ""},
		Scheduler: SchedulerConfig{CronExpression: "0 7 * * 1-5", Timezone: defaultTimezone},
		Search: SearchConfig{
			Providers: []string{"naver"},
			Naver: NaverConfig{
				Endpoint:          "https://openapi.naver.com/v1/search/news.json",
				Display:           100,
				MaxStart:          1000,
				RequestsPerSecond: 8,
			},
		},
		Pipeline: DefaultPipeline(),
		Entities: EntitiesConfig{CSVPath: "krx_stocks.csv"},
		ChatGPT: ChatGPTConfig{
			Model:              "gpt-4o-mini",
			Temperature:        0.1,
			NewsPrompt:         "You extract forward-looking business momentum for {company} from the supplied news articles. Only write about {company}.",
			FilingPrompt:       "You extract forward-looking business momentum for {company} from the supplied periodic filing. Use only the supplied text.",
			NewsContextChars:   5000,
			FilingContextChars: 50000,
		},
		Filings: FilingsConfig{Timeout: 60 * time.Second},
		Cache:   CacheConfig{TTL: 24 * time.Hour, KeyPrefix: "momentum:body:"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// DefaultPipeline returns the thresholds used when nothing is configured.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		LookbackMonths:      6,
		MaxConcurrent:       10,
		RequestTimeout:      20 * time.Second,
		RetryCount:          3,
		RetryBackoff:        500 * time.Millisecond,
		MinBodyLength:       100,
		MaxOtherEntities:    5,
		SimilarityThreshold: 0.6,
		HeadWindowSize:      2000,
		CoMentionWindow:     3000,
		Keywords: []string{
			"매출", "수출", "계약", "수주", "출시", "허가", "양산", "인수", "진출", "신사업", "투자", "공급",
		},
		TitleDenylist: defaultDenylist(),
		BodyDenylist:  defaultDenylist(),
	}
}

func defaultDenylist() []string {
	return []string{
		"특징주", "목표가", "신고가", "급락", "급등", "상한가", "폭등", "상승폭", "하락폭", "상승률",
		"급등락", "장마감", "시황", "[특징주]", "[속보]", "장을 마쳤다", "일 장중", "오늘의 주목주", "전날보다",
		"상승 마감", "하락 마감", "주말뉴스 FULL", "팍스경제TV", "동일업종 등락률", "거래일 종가", "투자 알고리즘",
		"브리핑", "바이오스냅", "공시모음", "e공시", "e종목", "더밸류", "데일리인베스트", "IB토마토", "인포스탁",
		"버핏 연구소", "리얼스탁", "한경유레카", "헬로스톡", "로보인베스팅", "골든클럽", "투자원정대", "오늘의 IR", "주요 공시", "IR Page",
		"스포츠", "법률신문", "조세회계", "표창", "훈장", "기념식", "후원", "선임", "광고",
		"포럼", "증여", "상속", "수요예측", "문화대상", "브랜드평", "상장폐지", "로펌", "횡령", "VC 하우스", "주식쇼", "데이터랩",
		"오류안내", "후속주", "로또", "평판지수", "브랜드평판", "지금이뉴스", "사외이사", "별세", "저PER", "사람인",
		"사업자등록번호", "3파전", "엔지니어상", "장관 표창", "내달 퇴임", "소집공고", "지분 매각", "주식등의 대량보유자", "who is?",
		"개인정보 항목", "면접 후기", "채용", "부시장", "민원처리반", "임금 체불", "총동문회", "점포거래소", "투자 핫플레이스",
		"[상보]", "유료서비스", "marketin", "프리미엄", "simplywall", "AI리포터", "DealSite", "지속가능경영보고서",
	}
}
