package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"wmsdash/internal/engine"
	"wmsdash/internal/fetch"
)

// DefaultEnvelope is the field the WMS API wraps its records in.
const DefaultEnvelope = "data"

// Config aggregates the server configuration.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Upstream UpstreamConfig  `mapstructure:"upstream"`
	Log      LogConfig       `mapstructure:"log"`
	Datasets []DatasetConfig `mapstructure:"datasets"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type UpstreamConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Token           string        `mapstructure:"token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	SyncEndpoints   []string      `mapstructure:"sync_endpoints"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

// DatasetConfig describes one upstream dataset and the tables opened over it.
type DatasetConfig struct {
	Name        string         `mapstructure:"name"`
	Title       string         `mapstructure:"title"`
	Endpoint    string         `mapstructure:"endpoint"`
	Envelope    string         `mapstructure:"envelope"`
	Shape       string         `mapstructure:"shape"`
	KeyField    string         `mapstructure:"key_field"`
	Breakouts   []string       `mapstructure:"breakouts"`
	JSONFields  []string       `mapstructure:"json_fields"`
	Separator   string         `mapstructure:"separator"`
	Flatten     bool           `mapstructure:"flatten"`
	InitialSort string         `mapstructure:"initial_sort"`
	Columns     []ColumnConfig `mapstructure:"columns"`
}

// ColumnConfig is an explicit column. Zero widths take the defaults;
// sortable and filterable default to true.
type ColumnConfig struct {
	ID         string  `mapstructure:"id"`
	Label      string  `mapstructure:"label"`
	MinWidth   float64 `mapstructure:"min_width"`
	Width      float64 `mapstructure:"width"`
	MaxWidth   float64 `mapstructure:"max_width"`
	Sortable   *bool   `mapstructure:"sortable"`
	Filterable *bool   `mapstructure:"filterable"`
	Render     string  `mapstructure:"render"`
	Target     string  `mapstructure:"target"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8080"},
		Upstream: UpstreamConfig{
			Timeout:         30 * time.Second,
			StaleAfter:      10 * time.Minute,
			RefreshInterval: 5 * time.Minute,
			SyncEndpoints:   DefaultSyncEndpoints(),
		},
		Datasets: DefaultDatasets(),
	}
}

// Load reads configuration from a file and environment variables.
// Environment variables use the prefix "WMSDASH" and the dot character in
// keys is replaced by an underscore, so "upstream.token" becomes
// "WMSDASH_UPSTREAM_TOKEN". With an empty path an optional config.yaml in
// the working directory is read.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("WMSDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// slices decode over existing elements, so they start empty
	cfg.Datasets = nil
	cfg.Upstream.SyncEndpoints = nil
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if len(cfg.Datasets) == 0 {
		cfg.Datasets = DefaultDatasets()
	}
	if cfg.Upstream.SyncEndpoints == nil {
		cfg.Upstream.SyncEndpoints = DefaultSyncEndpoints()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		switch f.Type.Kind() {
		case reflect.Struct:
			bindEnvs(v, val.Field(i).Interface(), key...)
		case reflect.Slice:
			if f.Type.Elem().Kind() == reflect.String {
				_ = v.BindEnv(strings.Join(key, "."))
			}
		default:
			_ = v.BindEnv(strings.Join(key, "."))
		}
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Server.Listen == "" {
		result = multierror.Append(result, errors.New("server.listen is required"))
	}
	if c.Upstream.BaseURL == "" {
		result = multierror.Append(result, errors.New("upstream.base_url is required"))
	}
	if c.Upstream.StaleAfter <= 0 {
		result = multierror.Append(result, errors.New("upstream.stale_after must be positive"))
	}
	if len(c.Datasets) == 0 {
		result = multierror.Append(result, errors.New("at least one dataset is required"))
	}

	seen := map[string]bool{}
	for i, ds := range c.Datasets {
		if ds.Name == "" {
			result = multierror.Append(result, fmt.Errorf("datasets[%d]: name is required", i))
		} else if seen[ds.Name] {
			result = multierror.Append(result, fmt.Errorf("datasets[%d]: duplicate name %q", i, ds.Name))
		}
		seen[ds.Name] = true

		if ds.Endpoint == "" {
			result = multierror.Append(result, fmt.Errorf("datasets[%d]: endpoint is required", i))
		}
		if _, err := engine.ParseShape(ds.Shape); err != nil {
			result = multierror.Append(result, fmt.Errorf("datasets[%d]: %w", i, err))
		}
		ids := map[string]bool{}
		for j, col := range columnDefs(ds.Columns) {
			switch {
			case col.ID == "":
				result = multierror.Append(result, fmt.Errorf("datasets[%d].columns[%d]: id is required", i, j))
			case ids[col.ID]:
				result = multierror.Append(result, fmt.Errorf("datasets[%d].columns[%d]: duplicate id %q", i, j, col.ID))
			}
			ids[col.ID] = true
			if col.MinWidth > col.MaxWidth {
				result = multierror.Append(result, fmt.Errorf("datasets[%d].columns[%d]: min_width %g exceeds max_width %g", i, j, col.MinWidth, col.MaxWidth))
			}
		}
	}
	return result.ErrorOrNil()
}

// FetchConfig is the upstream section in the form the fetch client takes.
func (c *Config) FetchConfig() fetch.Config {
	return fetch.Config{
		BaseURL:         c.Upstream.BaseURL,
		Token:           c.Upstream.Token,
		Timeout:         c.Upstream.Timeout,
		StaleAfter:      c.Upstream.StaleAfter,
		RefreshInterval: c.Upstream.RefreshInterval,
		SyncEndpoints:   c.Upstream.SyncEndpoints,
	}
}

// FetchDatasets converts the dataset section. Call Validate first.
func (c *Config) FetchDatasets() []fetch.Dataset {
	out := make([]fetch.Dataset, 0, len(c.Datasets))
	for _, ds := range c.Datasets {
		shape, _ := engine.ParseShape(ds.Shape)
		title := ds.Title
		if title == "" {
			title = engine.HeaderLabel(ds.Name)
		}
		envelope := ds.Envelope
		if envelope == "" {
			envelope = DefaultEnvelope
		}
		out = append(out, fetch.Dataset{
			Name:     ds.Name,
			Title:    title,
			Endpoint: ds.Endpoint,
			Descriptor: engine.Descriptor{
				Envelope: envelope,
				Shape:    shape,
				KeyField: ds.KeyField,
			},
			Options: engine.TableOptions{
				Breakouts:   engine.NewKeySet(ds.Breakouts...),
				JSONFields:  engine.NewKeySet(ds.JSONFields...),
				Separator:   ds.Separator,
				Flatten:     ds.Flatten,
				Columns:     columnDefs(ds.Columns),
				InitialSort: ds.InitialSort,
			},
		})
	}
	return out
}

func columnDefs(cols []ColumnConfig) []engine.ColumnDef {
	if len(cols) == 0 {
		return nil
	}
	out := make([]engine.ColumnDef, 0, len(cols))
	for _, c := range cols {
		def := engine.ColumnDef{
			ID:         c.ID,
			Label:      c.Label,
			MinWidth:   orDefault(c.MinWidth, engine.DefaultMinWidth),
			Width:      orDefault(c.Width, engine.DefaultWidth),
			MaxWidth:   orDefault(c.MaxWidth, engine.DefaultMaxWidth),
			Sortable:   c.Sortable == nil || *c.Sortable,
			Filterable: c.Filterable == nil || *c.Filterable,
			Render:     engine.ParseRenderKind(c.Render),
			Target:     c.Target,
		}
		if def.Label == "" {
			def.Label = engine.HeaderLabel(c.ID)
		}
		out = append(out, def)
	}
	return out
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
