package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/version"
)

var verbose bool

// Config holds CLI configuration
type Config struct {
	APIURL  string        `mapstructure:"api_url"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
	Output  string        `mapstructure:"output"`
}

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string
	var cfg Config

	root := &cobra.Command{
		Use:   "reviewctl",
		Short: "Review mailer CLI",
		Long: `reviewctl triggers review email runs and inspects what was sent.
Flags override REVIEWCTL_* environment variables, which override ~/.reviewctl.yaml.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(v, cfgFile)
			if err != nil {
				return err
			}
			cfg = c
			logVerbose(cmd.ErrOrStderr(), "API URL: %s", cfg.APIURL)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.reviewctl.yaml)")
	pf.String("api-url", "", "review mailer base URL")
	pf.String("secret", "", "cron secret for the trigger endpoint")
	pf.Duration("timeout", 0, "request timeout (a run may take minutes)")
	pf.StringP("output", "o", "", "output format (table, json)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = v.BindPFlag("api_url", pf.Lookup("api-url"))
	_ = v.BindPFlag("secret", pf.Lookup("secret"))
	_ = v.BindPFlag("timeout", pf.Lookup("timeout"))
	_ = v.BindPFlag("output", pf.Lookup("output"))

	client := func() *ReviewClient { return newClient(cfg.APIURL, cfg.Secret, cfg.Timeout) }

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Send due review emails now",
		Long:  "Calls the trigger endpoint once and prints the per-shop report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := client().Trigger(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	var shop string
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List review emails sent for a shop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(shop) == "" {
				return fmt.Errorf("--shop is required")
			}
			items, err := client().History(cmd.Context(), shop, limit)
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(cmd.OutOrStdout(), items)
			}
			printHistory(cmd.OutOrStdout(), items)
			return nil
		},
	}
	historyCmd.Flags().StringVar(&shop, "shop", "", "shop domain (e.g. demo.myshopify.com)")
	historyCmd.Flags().IntVar(&limit, "limit", 50, "max rows")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := client().Health(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				return printJSON(cmd.OutOrStdout(), h)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status:  %s\nDB:      %s\nCache:   %s\nVersion: %s\n", h.Status, h.DB, h.Cache, h.Version)
			if h.Status != "ok" {
				return fmt.Errorf("server unhealthy")
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api_url: %s\n", cfg.APIURL)
			fmt.Fprintf(out, "secret:  %s\n", maskSecret(cfg.Secret))
			fmt.Fprintf(out, "timeout: %s\n", cfg.Timeout)
			fmt.Fprintf(out, "output:  %s\n", cfg.Output)
			if f := v.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "file:    %s\n", f)
			}
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}

	root.AddCommand(runCmd, historyCmd, healthCmd, configCmd, versionCmd)
	return root
}

func loadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".reviewctl")
	}

	// Environment variables
	v.SetEnvPrefix("REVIEWCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("timeout", 10*time.Minute)
	v.SetDefault("output", "table")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.Output = strings.ToLower(c.Output)
	switch c.Output {
	case "table", "json":
	default:
		return Config{}, fmt.Errorf("unsupported output format %q", c.Output)
	}
	return c, nil
}

func printReport(w io.Writer, r RunReport) {
	fmt.Fprintf(w, "%-40s %-6s %-8s %-8s %s\n", "SHOP", "SENT", "SKIPPED", "FAILED", "ERROR")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	total := 0
	for _, s := range r.Results {
		total += len(s.EmailsSent)
		fmt.Fprintf(w, "%-40s %-6d %-8d %-8d %s\n", s.ShopID, len(s.EmailsSent), len(s.Skipped), len(s.Failures), s.Error)
	}
	fmt.Fprintf(w, "\nRun %s: %d emails sent across %d shops\n", r.RunID, total, len(r.Results))
}

func printHistory(w io.Writer, items []SentRecord) {
	fmt.Fprintf(w, "%-30s %-20s %s\n", "ORDER", "SENT", "MESSAGE ID")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	for _, it := range items {
		fmt.Fprintf(w, "%-30s %-20s %s\n", it.OrderID, it.SentAt.Format("2006-01-02 15:04:05"), it.MessageID)
	}
	fmt.Fprintf(w, "\nTotal: %d emails\n", len(items))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func logVerbose(w io.Writer, format string, args ...any) {
	if verbose {
		fmt.Fprintf(w, "[VERBOSE] "+format+"\n", args...)
	}
}
