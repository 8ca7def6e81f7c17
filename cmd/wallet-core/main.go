package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chainsafe/confidential-wallet/pkg/app"
	"github.com/chainsafe/confidential-wallet/pkg/app/wallet"
	"github.com/chainsafe/confidential-wallet/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = wallet.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "wallet core stopped: %v\n", err)
		os.Exit(1)
	}
}
