// Command qparse parses queries from the command line and prints their
// serialized AST as JSON. It also writes and verifies golden fixtures.
//
// Usage:
//
//	qparse [-snapshot parser.yaml] [-queries file] [query ...]
//	qparse -golden testdata/golden -update -queries file
//	qparse -golden testdata/golden
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/cache"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/classifier"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/factory"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/keyword"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/querystring"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/logger"
)

func main() {
	snapshot := flag.String("snapshot", "", "YAML file with parser options")
	queriesFile := flag.String("queries", "", "file with one query per line, - for stdin")
	golden := flag.String("golden", "", "golden fixture directory to verify")
	update := flag.Bool("update", false, "rewrite the golden fixtures instead of verifying them")
	compact := flag.Bool("compact", false, "print one JSON document per line")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "text")
	if err := run(os.Stdout, *snapshot, *queriesFile, *golden, *update, *compact, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "qparse: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, snapshot, queriesFile, golden string, update, compact bool, args []string) error {
	cfg, err := loadSnapshot(snapshot)
	if err != nil {
		return err
	}
	p, err := newParser(cfg)
	if err != nil {
		return err
	}

	queries := args
	if queriesFile != "" {
		fromFile, err := readQueries(queriesFile)
		if err != nil {
			return err
		}
		queries = append(queries, fromFile...)
	}

	if golden != "" {
		if update {
			if len(queries) == 0 {
				return errors.New("-update needs queries")
			}
			if err := writeGolden(p, golden, queries); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %d fixtures to %s\n", len(queries), golden)
			return nil
		}
		changed, err := checkGolden(p, golden)
		if err != nil {
			return err
		}
		if len(changed) > 0 {
			return fmt.Errorf("%d fixtures changed: %s", len(changed), strings.Join(changed, ", "))
		}
		fmt.Fprintln(out, "fixtures ok")
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "  ")
	}
	for _, q := range queries {
		pq, err := p.Parse(q)
		if err != nil {
			if encErr := enc.Encode(map[string]any{"query": q, "error": err.Error()}); encErr != nil {
				return encErr
			}
			continue
		}
		e := cache.NewEntry(pq)
		if err := enc.Encode(map[string]any{
			"query":               q,
			"parsed":              e.Parsed,
			"crossSearchStrategy": e.CrossSearchStrategy,
			"classes":             e.Classes,
			"featuresUsed":        e.FeaturesUsed,
		}); err != nil {
			return err
		}
	}
	return nil
}

// loadSnapshot reads parser options over the defaults. An empty path keeps
// the defaults.
func loadSnapshot(path string) (config.ParserConfig, error) {
	cfg := config.DefaultParserConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return cfg, nil
}

func newParser(cfg config.ParserConfig) (*querystring.Parser, error) {
	repo := classifier.NewRepository()
	if err := classifier.RegisterBasic(repo); err != nil {
		return nil, err
	}
	repo.Freeze()
	return factory.New(keyword.Builtin(), repo, nil).Build(cfg)
}

func readQueries(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			queries = append(queries, line)
		}
	}
	return queries, sc.Err()
}
