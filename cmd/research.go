package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spigell/company-researcher/internal/ai"
	"github.com/spigell/company-researcher/internal/logger"
	"github.com/spigell/company-researcher/internal/lookalike"
	"github.com/spigell/company-researcher/internal/research"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptLookalikes = "Find lookalike companies"
	PromptSentiment  = "Analyze news sentiment"
	PromptAISummary  = "AI summary"
	PromptToFile     = "Dump record to file"
	PromptExit       = "Exit"
)

var errExit = errors.New("exit requested")

var researchCmd = &cobra.Command{
	Use:   "research <company-name> <domain>",
	Short: "Research a single company and explore the result",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		researchRun(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(researchCmd)

	researchCmd.Flags().BoolP("force-refresh", "f", false, "ignore stored data and re-run the research workflow")
	researchCmd.Flags().IntP("freshness-days", "n", 0, "maximum age of stored data in days before it is considered stale")
}

func researchRun(cmd *cobra.Command, companyName, domainName string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	comps, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building components", zap.Error(err))
	}

	forceRefresh, _ := cmd.Flags().GetBool("force-refresh")
	freshnessDays, _ := cmd.Flags().GetInt("freshness-days")

	logger.Info("researching company",
		zap.String("company", companyName),
		zap.String("domain", domainName),
	)

	resp, err := comps.research.Research(ctx, &research.Request{
		CompanyName:       companyName,
		DomainName:        domainName,
		ForceRefresh:      forceRefresh,
		DataFreshnessDays: freshnessDays,
	})
	if err != nil {
		logger.Fatal("research failed", zap.Error(err))
	}

	if resp.IsCached {
		logger.Info("record served from storage")
	}
	if resp.IsMock {
		logger.Warn("record is mock data", zap.String("reason", resp.FallbackReason))
	}

	pretty, _ := json.MarshalIndent(resp.CompanyData, "", "  ")
	fmt.Println(string(pretty))

	actions := []string{PromptLookalikes, PromptSentiment}
	if comps.analyst != nil {
		actions = append(actions, PromptAISummary)
	}
	actions = append(actions, PromptToFile, PromptExit)

	prompt := promptui.Select{
		Label: "What next?",
		Items: actions,
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, comps, logger, companyName, domainName, resp); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, comps *components, logger *zap.Logger, companyName, domainName string, resp *research.Response) error {
	switch action {
	case PromptLookalikes:
		found, err := comps.lookalike.Find(ctx, &lookalike.Request{
			CompanyName: companyName,
			DomainName:  domainName,
		})
		if err != nil {
			return fmt.Errorf("finding lookalikes: %w", err)
		}
		return printJSON(found)
	case PromptSentiment:
		sources := recordSources(companyName, resp.CompanyData)
		if len(sources) == 0 {
			logger.Info("record has no news to analyze")
			return nil
		}
		if comps.analyst != nil {
			return printJSON(ai.AnalyzeSources(ctx, comps.analyst, comps.sentiment, sources))
		}
		return printJSON(comps.sentiment.AnalyzeSources(sources))
	case PromptAISummary:
		key := research.CompanyKey(companyName, domainName)
		summary, err := comps.analyst.Summarize(ctx, key, resp.CompanyData)
		if err != nil {
			return fmt.Errorf("ai summary: %w", err)
		}
		fmt.Println(summary)
		return nil
	case PromptToFile:
		filename, err := dumpToTmpFile(companyName, resp.CompanyData)
		if err != nil {
			return fmt.Errorf("dump record to file: %w", err)
		}
		logger.Info("dumped record to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printJSON(v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func dumpToTmpFile(companyName string, record map[string]any) (string, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", fmt.Sprintf("research-%s-*.json", companyName))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}
