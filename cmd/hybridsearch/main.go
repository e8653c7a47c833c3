package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	hybridsearch "github.com/timescale/TimescaleDB-HybridSearch"
	"github.com/timescale/TimescaleDB-HybridSearch/embedder"
	"github.com/timescale/TimescaleDB-HybridSearch/eval"
	"github.com/timescale/TimescaleDB-HybridSearch/internal/config"
	"github.com/timescale/TimescaleDB-HybridSearch/internal/logger"
	"github.com/timescale/TimescaleDB-HybridSearch/internal/metrics"
	"github.com/timescale/TimescaleDB-HybridSearch/internal/server"
	"github.com/timescale/TimescaleDB-HybridSearch/search"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional; DATABASE_URL env suffices)")
	serve := flag.Bool("serve", false, "run the HTTP API instead of the interactive demo")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging.Env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := hybridsearch.Open(ctx, hybridsearch.Options{
		DatabaseURL:    cfg.Database.URL,
		MaxConns:       cfg.Database.MaxConns,
		Dimensions:     cfg.Embedding.Dimensions,
		CandidateLimit: cfg.Search.CandidateLimit,
		RRFK:           cfg.Search.RRFK,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer client.Close()
	log.Info("connected to database", zap.Bool("tiger_cloud", cfg.IsTigerCloud()))

	emb, err := embedder.NewOpenAICompatible(embedder.OpenAICompatibleConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
	})
	if err != nil {
		log.Fatal("embedder", zap.Error(err))
	}
	log.Info("embedder ready",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions))

	if *serve {
		metrics.Register()
		srv, err := server.New(server.Options{
			Engine:    client.Engine,
			Embedder:  emb,
			Suggester: client.Store,
			Logger:    log,
			HTTP:      cfg.HTTP,
			Search:    cfg.Search,
		})
		if err != nil {
			log.Fatal("server", zap.Error(err))
		}
		if err := srv.Start(ctx); err != nil {
			log.Fatal("server", zap.Error(err))
		}
		return
	}

	runREPL(ctx, client, emb, cfg)
}

func runREPL(ctx context.Context, client *hybridsearch.Client, emb embedder.Embedder, cfg config.Config) {
	weights := search.Weights{
		Vector: cfg.Search.VectorWeight,
		Text:   cfg.Search.TextWeight,
	}
	limit := cfg.Search.DefaultLimit
	window := cfg.Search.DefaultTimeWindow

	fmt.Println()
	fmt.Println("Hybrid Search Demo")
	fmt.Println("Type a query to compare all four methods.")
	fmt.Printf("Commands: :sets, :quartet <name>, :eval <name> <query>, :doc <id>, :suggest <prefix>, quit\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("query> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			return
		case line == ":sets":
			showTrapSets(ctx, client)
			continue
		case strings.HasPrefix(line, ":quartet "):
			showQuartet(ctx, client, strings.TrimSpace(strings.TrimPrefix(line, ":quartet")))
			continue
		case strings.HasPrefix(line, ":eval "):
			runTrapEval(ctx, client, emb, cfg, strings.TrimSpace(strings.TrimPrefix(line, ":eval")))
			continue
		case strings.HasPrefix(line, ":doc "):
			showDocument(ctx, client, strings.TrimSpace(strings.TrimPrefix(line, ":doc")))
			continue
		case strings.HasPrefix(line, ":suggest "):
			showSuggestions(ctx, client, strings.TrimSpace(strings.TrimPrefix(line, ":suggest")))
			continue
		}

		vec, err := emb.EmbedText(ctx, line)
		if err != nil {
			fmt.Println("  embedding failed:", err)
			continue
		}

		responses := []*search.SearchResponse{}
		run := func(resp *search.SearchResponse, err error) {
			if err != nil {
				fmt.Println("  search failed:", err)
				return
			}
			responses = append(responses, resp)
		}
		run(client.Engine.VectorSearch(ctx, vec, limit))
		run(client.Engine.TextSearch(ctx, line, limit))
		run(client.Engine.HybridSearch(ctx, line, vec, limit, weights))
		run(client.Engine.HybridTemporalSearch(ctx, line, vec, window, limit, weights))

		for _, resp := range responses {
			printResponse(resp)
		}
	}
}

const scoreBarWidth = 25

func scoreBar(score, maxScore float64) string {
	if maxScore <= 0 {
		maxScore = 1
	}
	n := int(score / maxScore * scoreBarWidth)
	if n > scoreBarWidth {
		n = scoreBarWidth
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat("█", n) + strings.Repeat(" ", scoreBarWidth-n)
}

func trapLabel(doc search.Document) string {
	switch doc.TrapType {
	case search.TrapWinner:
		return "WINNER "
	case search.TrapSemanticBait:
		return "S-BAIT "
	case search.TrapKeywordBait:
		return "K-BAIT "
	case search.TrapTemporalBait:
		return "T-BAIT "
	default:
		return "       "
	}
}

func printResponse(resp *search.SearchResponse) {
	fmt.Printf("\n%s | %.2f ms | %d results\n", resp.Method, resp.ElapsedMs, len(resp.Results))
	if len(resp.Results) == 0 {
		fmt.Println("  (no matches)")
		return
	}

	// Scale bars to the best score of this method; vector and text scores
	// live on different scales and are never normalized against each other.
	maxScore := resp.Results[0].Score
	for i, r := range resp.Results {
		published := "          "
		if r.Document.PublishedDate != nil {
			published = r.Document.PublishedDate.Format("2006-01-02")
		}
		fmt.Printf("  %2d. %s %s %s %.4f  %-48s\n",
			i+1, trapLabel(r.Document), published,
			scoreBar(r.Score, maxScore), r.Score, truncate(r.Document.Title, 48))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func showTrapSets(ctx context.Context, client *hybridsearch.Client) {
	sets, err := client.Engine.ListTrapSets(ctx)
	if err != nil {
		fmt.Println("  lookup failed:", err)
		return
	}
	fmt.Println("  trap sets:", strings.Join(sets, ", "))
}

func showQuartet(ctx context.Context, client *hybridsearch.Client, name string) {
	quartet, err := client.Engine.GetTrapQuartet(ctx, name)
	if err != nil {
		fmt.Println("  lookup failed:", err)
		return
	}
	if len(quartet) == 0 {
		fmt.Println("  no such trap set")
		return
	}
	for _, role := range []string{search.TrapWinner, search.TrapSemanticBait, search.TrapKeywordBait, search.TrapTemporalBait} {
		if doc, ok := quartet[role]; ok {
			fmt.Printf("  %-14s %-12s %s\n", role, doc.ID, doc.Title)
		}
	}
}

// runTrapEval reruns all four methods for a query and reports, per method,
// which trap role surfaced first and where the winner landed.
func runTrapEval(ctx context.Context, client *hybridsearch.Client, emb embedder.Embedder, cfg config.Config, arg string) {
	parts := strings.SplitN(arg, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		fmt.Println("  usage: :eval <trap-set> <query>")
		return
	}
	trapSet, query := parts[0], strings.TrimSpace(parts[1])

	vec, err := emb.EmbedText(ctx, query)
	if err != nil {
		fmt.Println("  embedding failed:", err)
		return
	}

	weights := search.Weights{Vector: cfg.Search.VectorWeight, Text: cfg.Search.TextWeight}
	limit := cfg.Search.DefaultLimit

	judge := func(resp *search.SearchResponse, err error) {
		if err != nil {
			fmt.Println("  search failed:", err)
			return
		}
		v := eval.Judge(resp, trapSet)
		mark := "✗"
		if v.Correct {
			mark = "✓"
		}
		top := v.TopRole
		if top == "" {
			top = "(none)"
		}
		winner := "absent"
		if v.WinnerRank > 0 {
			winner = fmt.Sprintf("rank %d", v.WinnerRank)
		}
		fmt.Printf("  %s %-18s first role %-14s winner %s\n", mark, v.Method, top, winner)
	}
	judge(client.Engine.VectorSearch(ctx, vec, limit))
	judge(client.Engine.TextSearch(ctx, query, limit))
	judge(client.Engine.HybridSearch(ctx, query, vec, limit, weights))
	judge(client.Engine.HybridTemporalSearch(ctx, query, vec, cfg.Search.DefaultTimeWindow, limit, weights))
}

func showDocument(ctx context.Context, client *hybridsearch.Client, id string) {
	doc, err := client.Engine.GetDocumentByID(ctx, id)
	if err != nil {
		fmt.Println("  lookup failed:", err)
		return
	}
	if doc == nil {
		fmt.Println("  no such document")
		return
	}
	fmt.Printf("  %s (%s, version %s)\n", doc.Title, doc.Category, doc.Version)
	if len(doc.Tags) > 0 {
		fmt.Println("  tags:", strings.Join(doc.Tags, ", "))
	}
	if doc.IsDeprecated {
		fmt.Println("  DEPRECATED:", doc.DeprecationNote)
	}
	fmt.Println()
	fmt.Println(" ", truncate(doc.Body, 400))
}

func showSuggestions(ctx context.Context, client *hybridsearch.Client, prefix string) {
	hits, err := client.Typeahead(ctx, prefix, 8)
	if err != nil {
		fmt.Println("  typeahead failed:", err)
		return
	}
	for _, h := range hits {
		fmt.Printf("  %.3f  %s\n", h.Similarity, h.Title)
	}
}
