// Command get402 is a small CLI for the metered access protocol: mint keys,
// query balances, request purchase quotes and charge credits against a
// service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/get402/get402-go/client"
)

const defaultEndpoint = "https://get402.com/api"

// Config is the YAML configuration of the CLI.
type Config struct {
	Endpoint string `yaml:"endpoint"`
	Domain   string `yaml:"domain"`
	// AppKey is the exported secret of the billing app.
	AppKey string `yaml:"appKey"`
	// ClientKey is the exported secret of the session client. When absent
	// and ClientID is set, the client is a reference-only resume.
	ClientKey string `yaml:"clientKey"`
	ClientID  string `yaml:"clientId"`
}

func loadConfig(path string) (Config, error) {
	cfg := Config{Endpoint: defaultEndpoint}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return cfg, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: get402 [-config path] <command> [args]

commands:
  keygen                     mint an app key and print its secret encoding
  balance                    print the client's credit balance
  buy <credits>              request a payment quote for more credits
  charge <resource=qty ...>  charge consumed credits
`)
	os.Exit(2)
}

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if flag.NArg() == 0 {
		usage()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("loading config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log, flag.Args()); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, log *slog.Logger, args []string) error {
	command, rest := args[0], args[1:]

	if command == "keygen" {
		return keygen()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := buildClient(cfg)
	if err != nil {
		return err
	}
	log.Debug("resolved principals", "app", c.App().Identifier(), "client", c.Identifier())

	switch command {
	case "balance":
		balance, err := c.GetBalance(ctx)
		if err != nil {
			return err
		}
		fmt.Println(balance)
		return nil
	case "buy":
		if len(rest) != 1 {
			usage()
		}
		credits, err := strconv.ParseUint(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid credit quantity %q: %w", rest[0], err)
		}
		quote, err := c.RequestBuyCredits(ctx, credits)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(quote)
	case "charge":
		if len(rest) == 0 {
			usage()
		}
		usageMap, err := parseUsage(rest)
		if err != nil {
			return err
		}
		receipt, err := c.ChargeCredit(ctx, usageMap)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(receipt)
	default:
		usage()
		return nil
	}
}

func keygen() error {
	conn, err := client.NewConnection(defaultEndpoint)
	if err != nil {
		return err
	}
	app, err := client.GenerateApp(conn)
	if err != nil {
		return err
	}
	fmt.Printf("identifier: %s\nsecret: %s\n", app.Identifier(), app.Export())
	return nil
}

func buildClient(cfg Config) (*client.Client, error) {
	var opts []client.Option
	if cfg.Domain != "" {
		opts = append(opts, client.WithDomain(cfg.Domain))
	}
	conn, err := client.NewConnection(cfg.Endpoint, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.AppKey == "" {
		return nil, fmt.Errorf("config is missing appKey")
	}
	app, err := client.LoadApp(conn, cfg.AppKey)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.ClientKey != "":
		return app.LoadClient(cfg.ClientKey)
	case cfg.ClientID != "":
		return app.ClientFromIdentifier(cfg.ClientID), nil
	default:
		return nil, fmt.Errorf("config needs clientKey or clientId")
	}
}

func parseUsage(args []string) (map[string]uint64, error) {
	usageMap := make(map[string]uint64, len(args))
	for _, arg := range args {
		name, qty, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid usage entry %q, want resource=quantity", arg)
		}
		n, err := strconv.ParseUint(qty, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %q: %w", arg, err)
		}
		usageMap[name] = n
	}
	return usageMap, nil
}
