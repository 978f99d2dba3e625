package config

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/provmap/internal/alias"
)

// Config holds the full application configuration.
type Config struct {
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Aliases []alias.Entry `yaml:"aliases" mapstructure:"aliases"`
	Style   StyleConfig   `yaml:"style" mapstructure:"style"`
	Display DisplayConfig `yaml:"display" mapstructure:"display"`
	Overlay OverlayConfig `yaml:"overlay" mapstructure:"overlay"`
	Basemap BasemapConfig `yaml:"basemap" mapstructure:"basemap"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the map assets. Locations are local paths or
// http(s)/ftp URLs. Geometry is a GeoJSON file, a .shp file or a zipped
// shapefile. Aliases names an optional alias file whose entries extend the
// inline table.
type DataConfig struct {
	Dataset        string   `yaml:"dataset" mapstructure:"dataset"`
	Groups         string   `yaml:"groups" mapstructure:"groups"`
	Geometry       string   `yaml:"geometry" mapstructure:"geometry"`
	Aliases        string   `yaml:"aliases" mapstructure:"aliases"`
	Overlays       string   `yaml:"overlays" mapstructure:"overlays"`
	KeyColumn      string   `yaml:"key_column" mapstructure:"key_column"`
	Sheet          string   `yaml:"sheet" mapstructure:"sheet"`
	Group          string   `yaml:"group" mapstructure:"group"`
	NameProperties []string `yaml:"name_properties" mapstructure:"name_properties"`
}

// StyleConfig configures the color ramp and region stroke. Colors are hex.
type StyleConfig struct {
	Low         string  `yaml:"low" mapstructure:"low"`
	High        string  `yaml:"high" mapstructure:"high"`
	NoData      string  `yaml:"no_data" mapstructure:"no_data"`
	Stroke      string  `yaml:"stroke" mapstructure:"stroke"`
	Weight      float64 `yaml:"weight" mapstructure:"weight"`
	FillOpacity float64 `yaml:"fill_opacity" mapstructure:"fill_opacity"`
	Opacity     float64 `yaml:"opacity" mapstructure:"opacity"`
}

// DisplayConfig configures labels and number formatting.
type DisplayConfig struct {
	Locale      string            `yaml:"locale" mapstructure:"locale"`
	Dash        string            `yaml:"dash" mapstructure:"dash"`
	GroupTitles map[string]string `yaml:"group_titles" mapstructure:"group_titles"`
}

// OverlayConfig configures raster overlays.
type OverlayConfig struct {
	DefaultOpacity float64 `yaml:"default_opacity" mapstructure:"default_opacity"`
}

// BasemapConfig configures the basemap tile proxy.
type BasemapConfig struct {
	URL          string  `yaml:"url" mapstructure:"url"`
	Format       string  `yaml:"format" mapstructure:"format"`
	CacheEntries int     `yaml:"cache_entries" mapstructure:"cache_entries"`
	CacheTTLMins int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// FetchConfig configures remote asset loading.
type FetchConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration for the given command mode: "serve",
// "render" or "check".
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "render", "check":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	for key, val := range map[string]string{
		"data.dataset":  c.Data.Dataset,
		"data.groups":   c.Data.Groups,
		"data.geometry": c.Data.Geometry,
	} {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, key+" is required")
		}
	}
	if c.Overlay.DefaultOpacity < 0 || c.Overlay.DefaultOpacity > 1 {
		errs = append(errs, "overlay.default_opacity must be between 0 and 1")
	}
	if c.Style.FillOpacity < 0 || c.Style.FillOpacity > 1 {
		errs = append(errs, "style.fill_opacity must be between 0 and 1")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROVMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data.dataset", "data/provincies.csv")
	v.SetDefault("data.groups", "data/metric_groups.json")
	v.SetDefault("data.geometry", "data/nl_provinces.geojson")
	v.SetDefault("data.aliases", "")
	v.SetDefault("data.overlays", "data/overlays/index.json")
	v.SetDefault("data.key_column", "Provincie")
	v.SetDefault("data.sheet", "")
	v.SetDefault("data.group", "")
	v.SetDefault("data.name_properties", []string{"name", "Provincie", "statnaam", "NAME"})
	v.SetDefault("aliases", []map[string]string{
		{"from": "Fryslân", "to": "Friesland"},
		{"from": "Brabant", "to": "Noord-Brabant"},
	})
	v.SetDefault("style.low", "#f6fbf7")
	v.SetDefault("style.high", "#0e5735")
	v.SetDefault("style.no_data", "#f6fbf7")
	v.SetDefault("style.stroke", "#64766e")
	v.SetDefault("style.weight", 1)
	v.SetDefault("style.fill_opacity", 0.9)
	v.SetDefault("style.opacity", 1)
	v.SetDefault("display.locale", "nl")
	v.SetDefault("display.dash", "–")
	v.SetDefault("display.group_titles", map[string]string{
		"bedrijvigheid": "Bedrijvigheid",
		"r_strategie":   "R-strategie",
		"instrumenten":  "Instrumenten",
		"overig":        "Overig",
	})
	v.SetDefault("overlay.default_opacity", 0.65)
	v.SetDefault("basemap.url", "https://a.basemaps.cartocdn.com/light_nolabels/{z}/{x}/{y}.png")
	v.SetDefault("basemap.format", "png")
	v.SetDefault("basemap.cache_entries", 2048)
	v.SetDefault("basemap.cache_ttl_mins", 60)
	v.SetDefault("basemap.rate_limit", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "provmap/1.0")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
