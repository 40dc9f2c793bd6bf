// Command loadtest drives GET /api/v1/parse with a mix of query shapes and
// reports throughput, latency percentiles, cache hit rate and status codes.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	RPS         float64
	Queries     []string
}

// defaultQueries covers the grammar: bare words, phrases, keywords,
// negation, boolean operators, wildcards, fuzzy terms, namespace headers
// and one query over the soft length limit.
var defaultQueries = []string{
	"distributed systems",
	`"search engine" ranking`,
	"intitle:analytics platform",
	"incategory:Physics -intitle:draft",
	"cache AND optimization OR eviction",
	"tokeni* stemming",
	"levenshtein~ distance",
	`"inverted index"~2`,
	"help:query syntax",
	`insource:/foo.*bar/`,
	"morelike:Apple",
	"prefer-recent:0.5,160 news",
	"hastemplate:Infobox boost-templates:\"Featured|200%\"",
	"what is a query parser?",
	strings.Repeat("overlong ", 40),
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	tooLongCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

// parseResult is the part of a parse response the load test inspects.
type parseResult struct {
	CacheHit   bool   `json:"cacheHit"`
	MessageKey string `json:"messageKey"`
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, result parseResult, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		s.successCount.Add(1)
		if result.CacheHit {
			s.cacheHits.Add(1)
		}
	case statusCode == http.StatusBadRequest && result.MessageKey != "":
		s.tooLongCount.Add(1)
	default:
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the query parser service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rps := flag.Float64("rps", 0, "overall request rate limit, 0 for unlimited")
	queriesFile := flag.String("queries", "", "file with one query per line")
	flag.Parse()

	queries := defaultQueries
	if *queriesFile != "" {
		f, err := os.Open(*queriesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening queries: %v\n", err)
			os.Exit(1)
		}
		queries, err = loadQueries(f)
		f.Close()
		if err != nil || len(queries) == 0 {
			fmt.Fprintf(os.Stderr, "reading queries from %s: no queries (%v)\n", *queriesFile, err)
			os.Exit(1)
		}
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		RPS:         *rps,
		Queries:     queries,
	}

	fmt.Println("=== Query Parser Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	if cfg.RPS > 0 {
		fmt.Printf("Rate:        %.0f req/s\n", cfg.RPS)
	}
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg.Duration)
}

// loadQueries reads one query per line, skipping blank lines and lines
// starting with '#'.
func loadQueries(r io.Reader) ([]string, error) {
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, sc.Err()
}

func parseURL(base, query string) string {
	return fmt.Sprintf("%s/api/v1/parse?q=%s", strings.TrimRight(base, "/"), url.QueryEscape(query))
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Concurrency)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			queryIdx := workerID
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				query := cfg.Queries[queryIdx%len(cfg.Queries)]
				queryIdx++

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, parseURL(cfg.BaseURL, query), nil)
				if err != nil {
					stats.RecordRequest(0, 0, parseResult{}, err)
					continue
				}
				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.RecordRequest(time.Since(start), 0, parseResult{}, err)
					continue
				}
				var result parseResult
				_ = json.NewDecoder(resp.Body).Decode(&result)
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(time.Since(start), resp.StatusCode, result, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	tooLong := stats.tooLongCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %s\n", humanize.Comma(total))
	fmt.Printf("Parsed:          %s\n", humanize.Comma(success))
	fmt.Printf("Too Long:        %s\n", humanize.Comma(tooLong))
	fmt.Printf("Errors:          %s\n", humanize.Comma(errors))

	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errors)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if success > 0 {
		fmt.Printf("Cache Hit Rate:  %.2f%%\n", float64(stats.cacheHits.Load())/float64(success)*100)
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		avg := mean(latencies)

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
		fmt.Printf("StdDev: %s\n", stddev(latencies, avg))
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %s\n", code, humanize.Comma(stats.statusCodes[code].Load()))
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func mean(latencies []time.Duration) time.Duration {
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return sum / time.Duration(len(latencies))
}

func stddev(latencies []time.Duration, avg time.Duration) time.Duration {
	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l - avg)
		sumSquared += diff * diff
	}
	return time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
