package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"trends-go/internal/config"
	"trends-go/internal/service"
	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
)

type clientFactory func(cfg *config.Config, log *logger.Logger) (service.TrendsService, error)

func defaultClientFactory(cfg *config.Config, log *logger.Logger) (service.TrendsService, error) {
	return cfg.NewClient(log)
}

func newRootCmd(newClient clientFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "trends-go",
		Short:         "trends-go fetches related queries from Google Trends.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Configuration file path (YAML); TRENDS_* env vars override it")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")

	root.AddCommand(newFetchCmd(newClient), newIdentitiesCmd())
	return root
}

type fetchFlags struct {
	keywords      []string
	geo           string
	locale        string
	timeframe     string
	identity      string
	daysAgo       int
	rangeDays     int
	maxRetries    int
	switchRetries int
}

func newFetchCmd(newClient clientFactory) *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch -k <keyword> [-k <keyword>...]",
		Short: "Fetches TOP and RISING related queries and prints them as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			opts := cfg.Fetch.Options()
			fs := cmd.Flags()
			if fs.Changed("geo") {
				opts.Geo = flags.geo
			}
			if fs.Changed("locale") {
				if err := config.ValidateLocale(flags.locale); err != nil {
					return err
				}
				opts.Locale = flags.locale
			}
			if fs.Changed("timeframe") {
				opts.Timeframe = flags.timeframe
			}
			if fs.Changed("days-ago") {
				opts.DaysAgo = flags.daysAgo
			}
			if fs.Changed("range-days") {
				opts.RangeDays = flags.rangeDays
			}
			if fs.Changed("max-retries") {
				opts.MaxRetries = flags.maxRetries
			}
			if fs.Changed("identity") {
				opts.StartIdentity = identity.Identity(flags.identity)
			}
			if fs.Changed("switch-retries") {
				opts.IdentitySwitchRetries = flags.switchRetries
			}

			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}
			result, err := client.FetchTrends(cmd.Context(), flags.keywords, opts)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&flags.keywords, "keyword", "k", nil, "Keyword to compare (repeatable)")
	f.StringVar(&flags.geo, "geo", "", "Geographic restriction, e.g. US (default worldwide)")
	f.StringVar(&flags.locale, "locale", "", "Interface locale sent as hl (default en-US)")
	f.StringVar(&flags.timeframe, "timeframe", "", `Explicit timeframe, e.g. "now 7-d" (default "now 1-H")`)
	f.IntVar(&flags.daysAgo, "days-ago", 0, "Accepted for compatibility; does not change the request")
	f.IntVar(&flags.rangeDays, "range-days", 0, "Use a date range covering the last N days when no timeframe is given")
	f.IntVar(&flags.maxRetries, "max-retries", 0, "Attempts per phase under one identity (default 5)")
	f.StringVar(&flags.identity, "identity", "", "Browser identity to start with (default chrome110)")
	f.IntVar(&flags.switchRetries, "switch-retries", 0, "Identity switches allowed after the first cycle (default 2)")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}

func newIdentitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identities",
		Short: "Lists browser identities in rotation order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range identity.Default().Identities() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.NewManager().Load(path)
	if err != nil {
		return nil, nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logger.Level = "debug"
	}

	log := logger.New(cfg.Logger)
	logger.SetLogger(log)
	logger.WithField("config", path).Debug("Configuration loaded")
	return cfg, log, nil
}
