package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cryptoagent/internal/agent"
	"cryptoagent/internal/app"
	"cryptoagent/internal/config"
	"cryptoagent/internal/logging"
)

func main() {
	var configPath string
	var convert string
	var logLevel string
	var query string

	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json or config.yaml (optional)")
	flag.StringVar(&convert, "convert", "", "quote currency (default from config, USD)")
	flag.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&query, "q", "", "answer a single question and exit")
	flag.Parse()
	if query == "" && flag.NArg() > 0 {
		query = strings.Join(flag.Args(), " ")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if convert != "" {
		cfg.CoinMarketCap.Convert = strings.ToUpper(convert)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(ctx, cfg, log)
	defer a.Close()

	if query != "" {
		fmt.Println(a.Agent.Handle(ctx, query))
		return
	}

	repl := &agent.REPL{Agent: a.Agent, Log: log}
	if err := repl.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.WithError(err).Error("read loop stopped")
	}
}
