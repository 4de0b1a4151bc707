package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/company-researcher/internal/cache"
	"github.com/spigell/company-researcher/internal/clay"
	"github.com/spigell/company-researcher/internal/hubspot"
	"github.com/spigell/company-researcher/internal/logger"
	"github.com/spigell/company-researcher/internal/scheduler"
	"github.com/spigell/company-researcher/internal/scoring"
	"github.com/spigell/company-researcher/internal/secrets"
	"github.com/spigell/company-researcher/internal/sentiment"
	"github.com/spigell/company-researcher/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	defaultListen       = ":8000"
	defaultSyncInterval = 30 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the company-researcher HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address, overrides server.listen from the config")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the company-researcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	comps, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}

	cacheCfg := config.Cache
	if cacheCfg == nil {
		cacheCfg = cache.DefaultConfig()
	}

	caches, err := cache.NewManager(cacheCfg, logger)
	if err != nil {
		logger.Fatal("creating caches", zap.Error(err))
	}
	defer caches.Close()

	scorer := scoring.New(logger, caches)
	sched := scheduler.New(logger)

	tasks := builtinTasks(config, logger, comps, caches, scorer)
	registerSyncTask(config, logger, sched, tasks)

	if err := sched.Start(); err != nil {
		logger.Fatal("starting scheduler", zap.Error(err))
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			logger.Warn("stopping scheduler", zap.Error(err))
		}
	}()

	listen := defaultListen
	if config.Server != nil && config.Server.Listen != "" {
		listen = config.Server.Listen
	}
	if flagListen := viper.GetString("server.listen"); flagListen != "" {
		listen = flagListen
	}

	srv := server.New(logger, listen, server.Deps{
		Store:     comps.store,
		Research:  comps.research,
		Lookalike: comps.lookalike,
		Sentiment: comps.sentiment,
		Analyst:   comps.analyst,
		Scorer:    scorer,
		Scheduler: sched,
		Cache:     caches,
		Tasks:     tasks,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown signal"))
}

// builtinTasks are the scheduler tasks the API may register. The CRM sync
// task is only available when both HubSpot and Clay are configured.
func builtinTasks(config *Config, logger *zap.Logger, comps *components, caches *cache.Manager, scorer *scoring.Scorer) map[string]server.TaskDef {
	tasks := map[string]server.TaskDef{
		"cache-stats": {
			Name: "cache statistics report",
			Fn: func(context.Context) error {
				for kind, stats := range caches.Stats() {
					logger.Info("cache stats",
						zap.String("cache", kind),
						zap.Int("entries", stats.Size),
						zap.Int64("hits", stats.Hits),
						zap.Int64("misses", stats.Misses),
					)
				}
				return nil
			},
		},
	}

	sync, err := buildSyncTask(config, logger, comps, caches, scorer)
	if err != nil {
		logger.Warn("crm sync task unavailable", zap.Error(err))
		return tasks
	}

	tasks["crm-sync"] = server.TaskDef{
		Name: "clay to hubspot crm sync",
		Fn:   sync,
	}
	return tasks
}

// buildSyncTask wires the Clay -> scoring -> HubSpot pipeline.
func buildSyncTask(config *Config, logger *zap.Logger, comps *components, caches *cache.Manager, scorer *scoring.Scorer) (scheduler.TaskFunc, error) {
	if config.HubSpot == nil || config.HubSpot.TokenFile == "" {
		return nil, fmt.Errorf("hubspot.token-file is not configured")
	}
	if config.Clay == nil || config.Clay.APIKeyFile == "" {
		return nil, fmt.Errorf("clay.api-key-file is not configured")
	}
	if config.Sync == nil || len(config.Sync.Domains) == 0 {
		return nil, fmt.Errorf("sync.domains is empty")
	}

	hubspotToken, err := secrets.Load(secrets.Source{
		Name: "hubspot token",
		File: config.HubSpot.TokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading hubspot token: %w", err)
	}

	clayKey, err := secrets.Load(secrets.Source{
		Name: "clay api key",
		File: config.Clay.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading clay api key: %w", err)
	}

	crm := hubspot.New(logger, hubspotToken)
	signals := clay.New(logger, clayKey)
	domains := config.Sync.Domains

	return func(ctx context.Context) error {
		for _, domain := range domains {
			if err := syncDomain(ctx, logger, comps, caches, scorer, crm, signals, domain); err != nil {
				logger.Warn("crm sync failed for domain",
					zap.String("domain", domain),
					zap.Error(err),
				)
			}
		}
		return nil
	}, nil
}

func syncDomain(ctx context.Context, logger *zap.Logger, comps *components, caches *cache.Manager, scorer *scoring.Scorer, crm *hubspot.Client, signals *clay.Client, domain string) error {
	company, err := crm.SearchCompanyByDomain(ctx, domain)
	if err != nil {
		return fmt.Errorf("hubspot lookup: %w", err)
	}
	if company == nil {
		logger.Debug("no hubspot company for domain", zap.String("domain", domain))
		return nil
	}

	snapshot, err := signals.GetSnapshot(ctx, domain)
	if err != nil {
		return fmt.Errorf("clay snapshot: %w", err)
	}

	result, err := scorer.ScoreEntity(ctx, company.ID, "company", snapshotSignals(comps.sentiment, snapshot))
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	err = crm.UpdateCompany(ctx, company.ID, map[string]string{
		"crm_fit_score":  fmt.Sprintf("%.3f", result.Score),
		"crm_fit_scored": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("hubspot update: %w", err)
	}

	if err := caches.Put(cache.KindHubspot, company.ID, "company", company); err != nil {
		logger.Debug("caching hubspot company failed", zap.Error(err))
	}

	logger.Info("synced crm score",
		zap.String("domain", domain),
		zap.String("company_id", company.ID),
		zap.Float64("score", result.Score),
	)
	return nil
}

// snapshotSignals maps a Clay activity snapshot onto scoring inputs.
func snapshotSignals(analyzer *sentiment.Analyzer, snapshot *clay.Snapshot) scoring.Signals {
	signals := scoring.Signals{
		"hiring":        ratio(len(snapshot.Jobs), 20),
		"funding":       ratio(len(snapshot.Funding), 3),
		"tech_adoption": ratio(len(snapshot.TechStack), 10),
	}

	if len(snapshot.News) > 0 {
		sources := make([]*sentiment.Source, 0, len(snapshot.News))
		for _, item := range snapshot.News {
			sources = append(sources, &sentiment.Source{
				Title:   item.Title,
				URL:     item.URL,
				Snippet: item.Summary,
			})
		}
		analysis := analyzer.AnalyzeSources(sources)
		// Sentiment runs [-1, 1], signals run [0, 1].
		signals["positive_news"] = (analysis.Score + 1) / 2
	}

	return signals
}

func ratio(count, full int) float64 {
	r := float64(count) / float64(full)
	if r > 1 {
		return 1
	}
	return r
}

func registerSyncTask(config *Config, logger *zap.Logger, sched *scheduler.Scheduler, tasks map[string]server.TaskDef) {
	def, available := tasks["crm-sync"]
	if !available || config.Sync == nil || !config.Sync.Enabled {
		return
	}

	interval := defaultSyncInterval
	if config.Sync.IntervalMinutes > 0 {
		interval = time.Duration(config.Sync.IntervalMinutes) * time.Minute
	}

	if err := sched.Add("crm-sync", def.Name, interval, def.Fn); err != nil {
		logger.Warn("registering crm sync task", zap.Error(err))
		return
	}
	logger.Info("crm sync task registered", zap.Duration("interval", interval))
}
