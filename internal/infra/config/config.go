package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port string

	// Streaming driver / aggregator
	RefreshInterval  time.Duration
	AggregatorMode   string // "union" or "ordered-failover"
	FetchTimeout     time.Duration
	FetchParallelism int
	SeenSetCapacity  int

	// Provider credentials (empty disables the adapter)
	BreakingNewsAPIKey  string
	CompanyNewsAPIKey   string
	SentimentNewsAPIKey string
	BusinessNewsAPIKey  string
	BreakingNewsURL     string
	CompanyNewsURL      string
	SentimentNewsURL    string
	BusinessNewsURL     string
	BusinessCallBudget  int
	FeedURLs            []string
	CompanySymbols      []string

	// Chunking / retrieval
	MaxChunkTokens int
	RetrieveK      int
	RRFK           int

	// Ingest coordinator
	BatchMaxArticles int
	BatchMaxWait     time.Duration
	ChangefeedBuffer int

	// Push hub
	HubSinkBuffer int

	// Embedder / reranker / LLM agents
	AugurURL       string
	EmbeddingModel string
	EmbeddingDim   int
	GenerateModel  string
	AugurTimeout   time.Duration
	RerankerURL    string
	RerankerModel  string
	RerankTimeout  time.Duration

	// Quant agents
	MarketDataURL     string
	MarketDataTimeout time.Duration

	// Optional write-behind archive
	ArchiveDSN string

	// Optional changefeed outbox
	RedisURL        string
	OutboxStream    string
	OutboxMaxLen    int64
	OutboxKeyPrefix string

	DemoSeed bool
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		RefreshInterval:  getEnvDuration("REFRESH_INTERVAL", 45*time.Second),
		AggregatorMode:   getEnv("AGGREGATOR_MODE", "union"),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchParallelism: getEnvInt("FETCH_PARALLELISM", 5),
		SeenSetCapacity:  getEnvInt("SEEN_SET_CAPACITY", 10000),

		BreakingNewsAPIKey:  getSecret("BREAKING_NEWS_API_KEY", "BREAKING_NEWS_API_KEY_FILE", ""),
		CompanyNewsAPIKey:   getSecret("COMPANY_NEWS_API_KEY", "COMPANY_NEWS_API_KEY_FILE", ""),
		SentimentNewsAPIKey: getSecret("SENTIMENT_NEWS_API_KEY", "SENTIMENT_NEWS_API_KEY_FILE", ""),
		BusinessNewsAPIKey:  getSecret("BUSINESS_NEWS_API_KEY", "BUSINESS_NEWS_API_KEY_FILE", ""),
		BreakingNewsURL:     getEnv("BREAKING_NEWS_URL", "https://newsapi.org"),
		CompanyNewsURL:      getEnv("COMPANY_NEWS_URL", "https://finnhub.io"),
		SentimentNewsURL:    getEnv("SENTIMENT_NEWS_URL", "https://www.alphavantage.co"),
		BusinessNewsURL:     getEnv("BUSINESS_NEWS_URL", "http://api.mediastack.com"),
		BusinessCallBudget:  getEnvInt("BUSINESS_CALL_BUDGET", 500),
		FeedURLs: getEnvList("FEED_URLS", []string{
			"https://feeds.bloomberg.com/markets/news.rss",
			"https://www.cnbc.com/id/100003114/device/rss/rss.html",
			"https://feeds.a.dj.com/rss/RSSMarketsMain.xml",
			"https://www.ft.com/rss/home",
		}),
		CompanySymbols: getEnvList("COMPANY_SYMBOLS", []string{"AAPL", "MSFT", "GOOGL", "TSLA", "NVDA"}),

		MaxChunkTokens: getEnvInt("MAX_CHUNK_TOKENS", 512),
		RetrieveK:      getEnvInt("RETRIEVE_K", 5),
		RRFK:           getEnvInt("RRF_K", 60),

		BatchMaxArticles: getEnvInt("BATCH_MAX_ARTICLES", 64),
		BatchMaxWait:     getEnvDuration("BATCH_MAX_WAIT", 50*time.Millisecond),
		ChangefeedBuffer: getEnvInt("CHANGEFEED_BUFFER", 256),

		HubSinkBuffer: getEnvInt("HUB_SINK_BUFFER", 64),

		AugurURL:       getEnvWithAlt("AUGUR_URL", "AUGUR_EXTERNAL_URL", "http://augur-external:11434"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "embeddinggemma"),
		EmbeddingDim:   getEnvInt("EMBEDDING_DIM", 768),
		GenerateModel:  getEnv("GENERATE_MODEL", "gpt-oss20b-cpu"),
		AugurTimeout:   getEnvDuration("AUGUR_TIMEOUT", 60*time.Second),
		RerankerURL:    getEnv("RERANKER_URL", ""),
		RerankerModel:  getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),
		RerankTimeout:  getEnvDuration("RERANK_TIMEOUT", 15*time.Second),

		MarketDataURL:     getEnv("MARKET_DATA_URL", ""),
		MarketDataTimeout: getEnvDuration("MARKET_DATA_TIMEOUT", 10*time.Second),

		ArchiveDSN: getSecret("ARCHIVE_DSN", "ARCHIVE_DSN_FILE", ""),

		RedisURL:        getEnv("REDIS_URL", ""),
		OutboxStream:    getEnv("OUTBOX_STREAM", "news.admitted"),
		OutboxMaxLen:    int64(getEnvInt("OUTBOX_MAX_LEN", 10000)),
		OutboxKeyPrefix: getEnv("OUTBOX_KEY_PREFIX", "market-intel"),

		DemoSeed: getEnvBool("DEMO_SEED", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	// 1. Try direct environment variable
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	// 2. Try reading from file specified by fileEnvKey
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("45s", "1m30s") and, for
// compatibility with numeric deployments, bare integers meaning seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
