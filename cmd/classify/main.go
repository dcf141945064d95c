package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/finance-classifier/internal/analysis"
	"github.com/dvloznov/finance-classifier/internal/audit"
	"github.com/dvloznov/finance-classifier/internal/classify"
	"github.com/dvloznov/finance-classifier/internal/config"
	"github.com/dvloznov/finance-classifier/internal/domain"
	"github.com/dvloznov/finance-classifier/internal/logger"
	"github.com/dvloznov/finance-classifier/internal/pipeline"
	"github.com/dvloznov/finance-classifier/internal/rules"
	"github.com/dvloznov/finance-classifier/internal/taxonomy"
)

// Output is the JSON document written at the end of a run.
type Output struct {
	RunID        string               `json:"run_id"`
	Transactions []domain.Transaction `json:"transactions"`
	Report       *analysis.Report     `json:"report"`
	Stats        audit.Stats          `json:"stats"`
}

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	input := flag.String("input", "", "path to the transactions JSON file (required)")
	output := flag.String("output", "", "path for the result JSON (default: stdout)")
	auditPath := flag.String("audit", "", "path for the audit summary text (optional)")
	dryRun := flag.Bool("dry-run", false, "classify with rules only, without calling the model API")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if *input == "" {
		log.Fatal().Msg("Error: --input is required")
	}
	if !*dryRun && cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("GEMINI_API_KEY is required (or run with --dry-run)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	txs, err := readTransactions(*input)
	if err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("Reading transactions failed")
	}
	log.Info().Int("transactions", len(txs)).Bool("dry_run", *dryRun).Msg("Starting classification")

	tax := taxonomy.Default()
	alog := audit.NewLog()

	var dispatcher pipeline.BatchClassifier
	if !*dryRun {
		classifier, err := classify.NewGeminiClassifier(ctx, tax, cfg.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("Creating classifier failed")
		}
		dispatcher = classify.NewDispatcher(classifier, alog, cfg.DispatcherConfig(), log)
	}

	runner := pipeline.NewRunner(rules.Default(), dispatcher, alog, log)
	res, err := runner.Run(ctx, txs)
	if err != nil {
		log.Fatal().Err(err).Msg("Classification failed")
	}

	analyzer := analysis.New(tax, alog, log)
	report, err := analyzer.FullReport(res.Transactions)
	if err != nil {
		log.Fatal().Err(err).Msg("Report generation failed")
	}

	out := Output{
		RunID:        res.RunID,
		Transactions: res.Transactions,
		Report:       report,
		Stats:        res.Stats,
	}
	if err := writeOutput(*output, out); err != nil {
		log.Fatal().Err(err).Msg("Writing output failed")
	}

	if *auditPath != "" {
		if err := writeAudit(*auditPath, alog); err != nil {
			log.Fatal().Err(err).Msg("Writing audit summary failed")
		}
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("rule", res.Stats.ByMethod[audit.MethodRule]).
		Int("ai", res.Stats.ByMethod[audit.MethodAI]).
		Int("error", res.Stats.ByMethod[audit.MethodError]).
		Msg("Done")
}

// readTransactions loads the input batch. Transactions without an ID get a
// positional one so results can be re-associated.
func readTransactions(path string) ([]domain.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var txs []domain.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	seen := make(map[int]bool, len(txs))
	for i := range txs {
		if txs[i].ID == 0 {
			txs[i].ID = i + 1
		}
		if seen[txs[i].ID] {
			return nil, fmt.Errorf("duplicate transaction id %d", txs[i].ID)
		}
		seen[txs[i].ID] = true
	}
	return txs, nil
}

func writeOutput(path string, out Output) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeAudit(path string, alog *audit.Log) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return alog.Render(f)
}
