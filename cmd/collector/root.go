package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sdgmonitor/internal/config"
	"sdgmonitor/internal/logging"
	"sdgmonitor/internal/model"
	"sdgmonitor/internal/monitor"
	"sdgmonitor/internal/providers"
	"sdgmonitor/internal/providers/unsdg"
	"sdgmonitor/internal/providers/worldbank"
	"sdgmonitor/internal/store"
	"sdgmonitor/internal/store/sqlite"
)

// app carries what every subcommand needs once flags and config are parsed.
type app struct {
	viper   *viper.Viper
	cfgFile string
	level   string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{viper: viper.New()}

	root := &cobra.Command{
		Use:   "collector",
		Short: "Track SDG indicators for a focal country against its peers.",
		Long: `collector fetches SDG indicators from the World Bank WDI API and the UN SDG API,
compares a focal country (India by default) with a peer group and checks whether
it is on pace to reach the 2030 targets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.sdgmonitor.yaml)")
	flags.StringVarP(&a.level, "loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	flags.String("source", "", "data source: worldbank or unsdg")
	flags.String("focal", "", "focal country ISO3 (default IND)")
	flags.String("preset", "", "peer preset: SAARC, BRICS or \"G20 sample\"")
	flags.StringSlice("peers", nil, "extra peer ISO3 codes, comma-separated")
	flags.Int("year-from", 0, "first year shown")
	flags.Int("year-to", 0, "last year shown")
	flags.Int("workers", 0, "concurrent indicator fetches")
	flags.String("db", "", "sqlite database path (empty disables persistence)")

	for key, flag := range map[string]string{
		"source":    "source",
		"focal":     "focal",
		"preset":    "preset",
		"peers":     "peers",
		"year_from": "year-from",
		"year_to":   "year-to",
		"workers":   "workers",
		"db":        "db",
	} {
		_ = a.viper.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newRunCmd(a),
		newDrilldownCmd(a),
		newBrowseCmd(a),
		newDefinitionsCmd(a),
		newExportCmd(a),
		newPurgeCmd(a),
	)
	return root
}

func (a *app) init() error {
	if err := logging.SetLevel(a.level); err != nil {
		return err
	}
	if err := config.Init(a.viper, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.viper)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logging.Log.WithField("config", a.viper.ConfigFileUsed()).Debug("configuration loaded")
	return nil
}

func (a *app) countries() ([]string, error) {
	return monitor.Countries(a.cfg.Focal, a.cfg.Preset, a.cfg.Peers)
}

func (a *app) openStore() (store.Store, error) {
	if strings.TrimSpace(a.cfg.DB) == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(a.cfg.DB)
}

func (a *app) worldBank() (*worldbank.Provider, error) {
	return worldbank.NewWithConfig(worldbank.Config{
		BaseURL: a.cfg.WorldBank.BaseURL,
		PerPage: a.cfg.WorldBank.PerPage,
		HTTP:    a.cfg.WorldBank.HTTP.Client(),
	})
}

func (a *app) unSDG() (*unsdg.Provider, error) {
	return unsdg.NewWithConfig(unsdg.Config{
		BaseURL:          a.cfg.UNSDG.BaseURL,
		SDMXBaseURL:      a.cfg.UNSDG.SDMXBaseURL,
		RestCountriesURL: a.cfg.UNSDG.RestCountriesURL,
		CatalogueTTL:     a.cfg.Cache.CatalogueTTL,
		Scorer:           a.cfg.Scorer(),
		HTTP:             a.cfg.UNSDG.HTTP.Client(),
		Logger:           logging.Log,
	})
}

// buildProvider returns the provider for source behind the series cache.
func (a *app) buildProvider(source model.Source, st store.Store) (providers.Provider, error) {
	var (
		provider providers.Provider
		err      error
	)
	switch source {
	case model.SourceWorldBank:
		provider, err = a.worldBank()
	case model.SourceUNSDG:
		provider, err = a.unSDG()
	default:
		return nil, fmt.Errorf("unknown provider: %s", source)
	}
	if err != nil {
		return nil, err
	}
	return providers.Cached(provider, st, a.cfg.Cache.TTL, logging.Log), nil
}

func (a *app) monitor(provider providers.Provider, st store.Store) *monitor.Monitor {
	return monitor.New(provider, monitor.Options{
		Evaluator: a.cfg.Evaluator(),
		Workers:   a.cfg.Workers,
		Store:     st,
		Logger:    logging.Log,
	})
}

func goalIndicators(goal int) ([]model.Indicator, string, error) {
	name, ok := monitor.GoalName(goal)
	if !ok {
		return nil, "", fmt.Errorf("unknown goal: %d (expected 1-17)", goal)
	}
	return monitor.IndicatorsForGoal(monitor.DefaultCatalogue(), goal), name, nil
}
