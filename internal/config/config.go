package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"sdgmonitor/internal/cube"
	"sdgmonitor/internal/httpclient"
	"sdgmonitor/internal/model"
	"sdgmonitor/internal/progress"
)

const (
	EnvPrefix = "SDGMON"
	fileName  = ".sdgmonitor"
	minYear   = 1990
)

type HTTP struct {
	Timeout         time.Duration
	RateLimitPerSec int
	RateLimitBurst  int
	MaxRetries      int
	UserAgent       string
}

func (h HTTP) Client() httpclient.Config {
	return httpclient.Config{
		Timeout:         h.Timeout,
		RateLimitPerSec: h.RateLimitPerSec,
		RateLimitBurst:  h.RateLimitBurst,
		MaxRetries:      h.MaxRetries,
		UserAgent:       h.UserAgent,
	}
}

type Cache struct {
	TTL          time.Duration
	CatalogueTTL time.Duration
}

type WorldBank struct {
	BaseURL string
	PerPage int
	HTTP    HTTP
}

type UNSDG struct {
	BaseURL          string
	SDMXBaseURL      string
	RestCountriesURL string
	HTTP             HTTP
}

type Progress struct {
	OnTrack           float64
	NeedsAcceleration float64
}

type Cube struct {
	TotalTokens    []string
	NationalValues []string
}

type Config struct {
	Source    model.Source
	Focal     string
	Preset    string
	Peers     []string
	YearFrom  int
	YearTo    int
	Workers   int
	DB        string
	Cache     Cache
	WorldBank WorldBank
	UNSDG     UNSDG
	Progress  Progress
	Cube      Cube
}

// SetDefaults registers every key so that env overrides are picked up even
// when the config file does not mention them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source", string(model.SourceWorldBank))
	v.SetDefault("focal", "IND")
	v.SetDefault("preset", "SAARC")
	v.SetDefault("peers", []string{})
	v.SetDefault("year_from", 2000)
	v.SetDefault("year_to", time.Now().Year())
	v.SetDefault("workers", 4)
	v.SetDefault("db", "sdgmonitor.db")

	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.catalogue_ttl", 24*time.Hour)

	v.SetDefault("worldbank.base_url", "https://api.worldbank.org/v2")
	v.SetDefault("worldbank.per_page", 20000)
	setHTTPDefaults(v, "worldbank")

	v.SetDefault("unsdg.base_url", "https://unstats.un.org/SDGAPI/v1/sdg")
	v.SetDefault("unsdg.sdmx_base_url", "https://data.un.org/ws/rest/data/IAEG-SDGs,DF_SDG_GLH")
	v.SetDefault("unsdg.restcountries_url", "https://restcountries.com/v3.1")
	setHTTPDefaults(v, "unsdg")

	v.SetDefault("progress.on_track", 1.0)
	v.SetDefault("progress.needs_acceleration", 0.5)

	v.SetDefault("cube.total_tokens", cube.DefaultTotalTokens)
	v.SetDefault("cube.national_values", cube.DefaultNationalValues)
}

func setHTTPDefaults(v *viper.Viper, prefix string) {
	v.SetDefault(prefix+".timeout", 30*time.Second)
	v.SetDefault(prefix+".rate_limit_per_sec", 5)
	v.SetDefault(prefix+".rate_limit_burst", 5)
	v.SetDefault(prefix+".max_retries", 3)
	v.SetDefault(prefix+".user_agent", "sdgmonitor/0.1")
}

// Init prepares v to read cfgFile, or $HOME/.sdgmonitor.yaml when cfgFile is
// empty, plus SDGMON_* environment variables. A .env file in the working
// directory is loaded first when present.
func Init(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: loading .env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		v.AddConfigPath(home)
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// Load reads the resolved configuration out of v.
func Load(v *viper.Viper) (Config, error) {
	source, err := parseSource(v.GetString("source"))
	if err != nil {
		return Config{}, err
	}
	db, err := expandPath(v.GetString("db"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Source:   source,
		Focal:    strings.ToUpper(strings.TrimSpace(v.GetString("focal"))),
		Preset:   strings.TrimSpace(v.GetString("preset")),
		Peers:    upperList(v.GetStringSlice("peers")),
		YearFrom: v.GetInt("year_from"),
		YearTo:   v.GetInt("year_to"),
		Workers:  v.GetInt("workers"),
		DB:       db,
		Cache: Cache{
			TTL:          v.GetDuration("cache.ttl"),
			CatalogueTTL: v.GetDuration("cache.catalogue_ttl"),
		},
		WorldBank: WorldBank{
			BaseURL: v.GetString("worldbank.base_url"),
			PerPage: v.GetInt("worldbank.per_page"),
			HTTP:    loadHTTP(v, "worldbank"),
		},
		UNSDG: UNSDG{
			BaseURL:          v.GetString("unsdg.base_url"),
			SDMXBaseURL:      v.GetString("unsdg.sdmx_base_url"),
			RestCountriesURL: v.GetString("unsdg.restcountries_url"),
			HTTP:             loadHTTP(v, "unsdg"),
		},
		Progress: Progress{
			OnTrack:           v.GetFloat64("progress.on_track"),
			NeedsAcceleration: v.GetFloat64("progress.needs_acceleration"),
		},
		Cube: Cube{
			TotalTokens:    upperList(v.GetStringSlice("cube.total_tokens")),
			NationalValues: upperList(v.GetStringSlice("cube.national_values")),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadHTTP(v *viper.Viper, prefix string) HTTP {
	return HTTP{
		Timeout:         v.GetDuration(prefix + ".timeout"),
		RateLimitPerSec: v.GetInt(prefix + ".rate_limit_per_sec"),
		RateLimitBurst:  v.GetInt(prefix + ".rate_limit_burst"),
		MaxRetries:      v.GetInt(prefix + ".max_retries"),
		UserAgent:       v.GetString(prefix + ".user_agent"),
	}
}

func (c Config) Validate() error {
	if len(c.Focal) != 3 {
		return fmt.Errorf("config: focal must be an ISO3 code, got %q", c.Focal)
	}
	if c.YearFrom < minYear {
		return fmt.Errorf("config: year_from %d is before %d", c.YearFrom, minYear)
	}
	if c.YearTo < c.YearFrom {
		return fmt.Errorf("config: year_to %d is before year_from %d", c.YearTo, c.YearFrom)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.Cache.TTL < 0 || c.Cache.CatalogueTTL < 0 {
		return errors.New("config: cache ttl must not be negative")
	}
	if err := c.Evaluator().Thresholds.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if len(c.Cube.TotalTokens) == 0 {
		return errors.New("config: cube.total_tokens is empty")
	}
	return nil
}

func (c Config) Evaluator() progress.Evaluator {
	evaluator := progress.Default()
	evaluator.Thresholds = progress.Thresholds{
		OnTrack:           c.Progress.OnTrack,
		NeedsAcceleration: c.Progress.NeedsAcceleration,
	}
	return evaluator
}

func (c Config) Scorer() cube.TokenScorer {
	scorer := cube.DefaultScorer()
	scorer.TotalTokens = append([]string(nil), c.Cube.TotalTokens...)
	scorer.NationalValues = append([]string(nil), c.Cube.NationalValues...)
	return scorer
}

func parseSource(raw string) (model.Source, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "worldbank", "wb", "wdi":
		return model.SourceWorldBank, nil
	case "unsdg", "un":
		return model.SourceUNSDG, nil
	default:
		return "", fmt.Errorf("config: unknown source %q", raw)
	}
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("config: expanding %q: %w", path, err)
	}
	return filepath.Clean(expanded), nil
}

// upperList also splits comma-joined values, which is how env vars arrive.
func upperList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
