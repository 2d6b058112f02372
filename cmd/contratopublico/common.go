package main

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chicoferreira/contratopublico-go/internal/config"
)

// addPostgresFlags registers the flags shared by every subcommand that
// talks to the relational store.
func addPostgresFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-url", "", "Postgres connection URL (overrides $DATABASE_URL)")
}

// addSearchFlags registers the flags shared by every subcommand that
// talks to the search index.
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().String("search-url", "", "Meilisearch host (overrides $MEILISEARCH_URL; default http://localhost:7700)")
	cmd.Flags().String("search-key", "", "Meilisearch API key (overrides $MEILISEARCH_KEY)")
}

// addProxyFlag registers the optional upstream proxy flag shared by
// commands that talk to the portal directly.
func addProxyFlag(cmd *cobra.Command) {
	cmd.Flags().String("proxy", "", "upstream proxy URL for portal requests")
}

// loadConfig reads the --config file (applying its own environment
// overrides, see internal/config), giving every subcommand a single
// place to fall back to when a flag is left empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// flagOrEnv resolves flag in precedence flag > cfg (already merged
// with its own environment overrides by config.Load) > fallback.
func flagOrEnv(cmd *cobra.Command, flag string, cfgValue string, fallback string) string {
	v, _ := cmd.Flags().GetString(flag)
	if v != "" {
		return v
	}
	if cfgValue != "" {
		return cfgValue
	}
	return fallback
}

// flagIntOrConfig resolves an int flag in precedence explicitly-set flag
// > cfgValue > the flag's own registered default.
func flagIntOrConfig(cmd *cobra.Command, flag string, cfgValue int) int {
	v, _ := cmd.Flags().GetInt(flag)
	if cmd.Flags().Changed(flag) {
		return v
	}
	if cfgValue != 0 {
		return cfgValue
	}
	return v
}

// flagFloat64OrConfig mirrors flagIntOrConfig for float64 flags.
func flagFloat64OrConfig(cmd *cobra.Command, flag string, cfgValue float64) float64 {
	v, _ := cmd.Flags().GetFloat64(flag)
	if cmd.Flags().Changed(flag) {
		return v
	}
	if cfgValue != 0 {
		return cfgValue
	}
	return v
}

func parseProxyFlag(cmd *cobra.Command, cfgProxyURL string) (*url.URL, error) {
	raw, _ := cmd.Flags().GetString("proxy")
	if raw == "" {
		raw = cfgProxyURL
	}
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}

// redactDatabaseURL scrubs credentials out of a Postgres connection
// URL so it is safe to write to the log.
func redactDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		if u.User != nil {
			user := u.User.Username()
			if user == "" {
				user = "user"
			}
			u.User = url.UserPassword(user, "****")
		}
		u.RawQuery = ""
		return u.String()
	}

	re := regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:/?#]+):([^@]+)@`)
	if re.MatchString(raw) {
		return re.ReplaceAllString(raw, `$1:****@`)
	}
	re = regexp.MustCompile(`(?i)(password=)(\S+)`)
	return re.ReplaceAllString(raw, `$1****`)
}
