package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chicoferreira/contratopublico-go/internal/portal"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Fetch and print a single contract by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	addProxyFlag(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("fetch: invalid id %q: %w", args[0], err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	proxyURL, err := parseProxyFlag(cmd, cfg.ProxyURL)
	if err != nil {
		return fmt.Errorf("fetch: parse --proxy: %w", err)
	}

	var opts []portal.Option
	if proxyURL != nil {
		opts = append(opts, portal.WithProxy(proxyURL))
	}
	client := portal.NewClient(opts...)

	contract, err := client.FetchDetail(context.Background(), id)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(contract)
}
