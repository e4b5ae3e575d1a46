package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"market-intel/internal/adapter/archive"
	"market-intel/internal/adapter/augur"
	"market-intel/internal/adapter/outbox"
	"market-intel/internal/adapter/quant"
	"market-intel/internal/adapter/source"
	"market-intel/internal/domain"
	"market-intel/internal/hub"
	"market-intel/internal/index"
	"market-intel/internal/infra"
	"market-intel/internal/infra/config"
	"market-intel/internal/infra/httpclient"
	"market-intel/internal/infra/logger"
	"market-intel/internal/rest"
	"market-intel/internal/usecase/aggregate"
	"market-intel/internal/usecase/ingest"
	"market-intel/internal/usecase/market"
	"market-intel/internal/usecase/retrieval"
	"market-intel/internal/usecase/route"
	"market-intel/internal/usecase/verdict"
	"market-intel/internal/worker"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.New()
	slog.SetDefault(log)

	// 3. Initialize Source Adapters
	fetchClient := httpclient.NewPooledClient(cfg.FetchTimeout)
	var sources []domain.NewsSource
	if cfg.BreakingNewsAPIKey != "" {
		sources = append(sources, source.NewBreakingNewsSource(cfg.BreakingNewsAPIKey, cfg.BreakingNewsURL, fetchClient, log))
	}
	if cfg.CompanyNewsAPIKey != "" {
		sources = append(sources, source.NewCompanyNewsSource(cfg.CompanyNewsAPIKey, cfg.CompanyNewsURL, cfg.CompanySymbols, fetchClient, log))
	}
	if cfg.SentimentNewsAPIKey != "" {
		sources = append(sources, source.NewSentimentNewsSource(cfg.SentimentNewsAPIKey, cfg.SentimentNewsURL, cfg.CompanySymbols, fetchClient, log))
	}
	if cfg.BusinessNewsAPIKey != "" {
		sources = append(sources, source.NewBusinessNewsSource(cfg.BusinessNewsAPIKey, cfg.BusinessNewsURL, cfg.BusinessCallBudget, fetchClient, log))
	}
	if len(cfg.FeedURLs) > 0 {
		sources = append(sources, source.NewPublicFeedSource(cfg.FeedURLs, fetchClient, log))
	}
	log.Info("sources_configured", "count", len(sources))

	// 4. Initialize Aggregator
	seen, err := aggregate.NewSeenSet(cfg.SeenSetCapacity)
	if err != nil {
		log.Error("failed to create seen set", "error", err)
		os.Exit(1)
	}
	aggregator := aggregate.New(sources, seen, aggregate.ParseMode(cfg.AggregatorMode), cfg.FetchParallelism, log)

	// 5. Initialize Index + Retrieval
	store := index.NewStore()
	chunker := domain.NewChunker(cfg.MaxChunkTokens)
	embedder := augur.NewEmbedder(cfg.AugurURL, cfg.EmbeddingModel, cfg.EmbeddingDim, cfg.AugurTimeout, nil)

	var reranker domain.Reranker
	if cfg.RerankerURL != "" {
		reranker = augur.NewRerankerClient(cfg.RerankerURL, cfg.RerankerModel, cfg.RerankTimeout, log, nil)
	}
	retriever := retrieval.NewRetriever(store, embedder, reranker, float64(cfg.RRFK), log)

	// 6. Initialize Archive (optional Postgres, memory ring fallback)
	var articleArchive domain.ArticleArchive
	var readyCheck func(ctx context.Context) error
	if cfg.ArchiveDSN != "" {
		dbPool, err := infra.NewPostgresDB(context.Background(), cfg.ArchiveDSN)
		if err != nil {
			log.Error("failed to connect to archive db", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()
		articleArchive = archive.NewPostgresArchive(dbPool, log)
		readyCheck = dbPool.Ping
	} else {
		articleArchive = archive.NewMemoryArchive(0)
	}

	// 7. Initialize Outbox (optional)
	var changefeedOutbox domain.ChangefeedOutbox
	if cfg.RedisURL != "" {
		redisOutbox, err := outbox.NewRedisOutbox(context.Background(), cfg.RedisURL, cfg.OutboxStream, cfg.OutboxMaxLen, log)
		if err != nil {
			log.Error("failed to connect to outbox redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = redisOutbox.Close() }()
		changefeedOutbox = redisOutbox
	}

	// 8. Initialize Analysts
	var priceFeed domain.PriceFeed
	if cfg.MarketDataURL != "" {
		priceFeed = quant.NewHTTPPriceFeed(cfg.MarketDataURL, cfg.MarketDataTimeout, log, nil)
	}
	technical := quant.NewTechnicalAnalyst(priceFeed, log)
	risk := quant.NewRiskAnalyst(priceFeed, log)
	sentiment := augur.NewSentimentClient(cfg.AugurURL, cfg.GenerateModel, cfg.AugurTimeout, log, nil)
	decision := augur.NewDecisionClient(cfg.AugurURL, cfg.GenerateModel, cfg.AugurTimeout, log, nil)

	// 9. Initialize Pipeline
	pushHub := hub.New(cfg.HubSinkBuffer, log)
	registry := market.NewRegistry()
	assembler := verdict.NewAssembler(retriever, sentiment, technical, risk, decision, registry, pushHub, cfg.RetrieveK, log)
	router := route.NewRouter(assembler, pushHub, log)
	commitUsecase := ingest.NewCommitBatchUsecase(chunker, embedder, store, articleArchive, changefeedOutbox, log)

	driver := worker.NewDriver(aggregator, cfg.RefreshInterval, cfg.ChangefeedBuffer, log)
	coordinator := worker.NewCoordinator(driver.Events(), commitUsecase, router, registry, pushHub,
		store, cfg.BatchMaxArticles, cfg.BatchMaxWait, log)

	// 10. Start Pipeline
	coordinator.Start()
	driver.Start()
	defer func() {
		driver.Stop()
		select {
		case <-coordinator.Done():
		case <-time.After(10 * time.Second):
			log.Warn("coordinator_drain_timed_out")
		}
	}()

	if cfg.DemoSeed {
		go seedDemoArticles(driver, log)
	}

	// 11. Initialize Echo + Handlers
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	handler := rest.NewHandler(assembler, driver, seen, aggregator, articleArchive, registry, pushHub, store)
	rest.RegisterRoutes(e, handler, log, readyCheck)

	// 12. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("server_starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
		}
	}()

	// 13. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("failed to shut down server", "error", err)
	}
}

// seedDemoArticles admits a fixed article set through the external-ingest
// path so a credential-less deployment has content immediately.
func seedDemoArticles(driver *worker.Driver, log *slog.Logger) {
	now := time.Now().UTC()
	drafts := []domain.ArticleDraft{
		{
			Title:        "Apple AAPL Reports Record Q4 Earnings",
			Description:  "Apple Inc. reported record quarterly earnings...",
			Content:      "Apple Inc. (AAPL) reported record quarterly earnings, beating analyst expectations with strong iPhone sales.",
			SourceName:   "Reuters",
			CanonicalURL: "https://example.com/apple-earnings",
			PublishedAt:  now,
		},
		{
			Title:        "Microsoft MSFT Cloud Revenue Surges",
			Description:  "Microsoft Azure sees 30% growth...",
			Content:      "Microsoft's (MSFT) cloud computing division Azure saw 30% year-over-year growth in Q4.",
			SourceName:   "CNBC",
			CanonicalURL: "https://example.com/msft-cloud",
			PublishedAt:  now,
		},
		{
			Title:        "Tesla TSLA Stock Drops on Delivery Miss",
			Description:  "Tesla shares fell 5% after...",
			Content:      "Tesla (TSLA) shares fell 5% after the company reported deliveries below analyst expectations.",
			SourceName:   "Bloomberg",
			CanonicalURL: "https://example.com/tsla-drop",
			PublishedAt:  now,
		},
		{
			Title:        "Google GOOGL Ad Revenue Beats Expectations",
			Description:  "Alphabet's advertising business returns to growth...",
			Content:      "Alphabet (GOOGL) posted advertising revenue above consensus as search spending recovered.",
			SourceName:   "Reuters",
			CanonicalURL: "https://example.com/googl-ads",
			PublishedAt:  now,
		},
		{
			Title:        "Amazon AMZN Expands Same-Day Delivery",
			Description:  "Amazon grows its logistics network...",
			Content:      "Amazon (AMZN) announced an expansion of same-day delivery to forty more metro areas, pressuring retail MARKET competitors.",
			SourceName:   "CNBC",
			CanonicalURL: "https://example.com/amzn-delivery",
			PublishedAt:  now,
		},
	}

	admitted := 0
	for _, d := range drafts {
		article, ok := domain.NormalizeArticle(d, "demo-seed", now)
		if !ok {
			continue
		}
		if driver.Admit(article) {
			admitted++
		}
	}
	log.Info("demo_articles_seeded", "count", admitted)
}
