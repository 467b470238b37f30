package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

type File struct {
	Version  int      `yaml:"version" json:"version"`
	Server   Server   `yaml:"server" json:"server"`
	Upstream Upstream `yaml:"upstream" json:"upstream"`
	Cache    Cache    `yaml:"cache" json:"cache"`
	UI       UI       `yaml:"ui" json:"ui"`
	MDNS     MDNS     `yaml:"mdns" json:"mdns"`
}

type Server struct {
	Addr string `yaml:"addr" json:"addr"`
	// BasePrefix is the URL path under which the dashboard is mounted. All
	// generated links are relative to it. It starts and ends with "/".
	BasePrefix string `yaml:"base_prefix" json:"base_prefix"`
	// GRPCAddr enables the gRPC bridge when set.
	GRPCAddr string `yaml:"grpc_addr,omitempty" json:"grpc_addr,omitempty"`
}

type Upstream struct {
	// URL is the root of the BulkTracker deployment serving json/ endpoints.
	URL     string   `yaml:"url" json:"url"`
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

type Cache struct {
	// Path of the sqlite response cache. Empty disables caching.
	Path          string   `yaml:"path" json:"path"`
	TTL           Duration `yaml:"ttl" json:"ttl"`
	SweepSchedule string   `yaml:"sweep_schedule" json:"sweep_schedule"`
	SessionTTL    Duration `yaml:"session_ttl" json:"session_ttl"`
	// MaxSessions bounds the number of category tree sessions kept.
	MaxSessions int `yaml:"max_sessions" json:"max_sessions"`
}

type UI struct {
	Title    string `yaml:"title" json:"title"`
	PageSize int    `yaml:"page_size" json:"page_size"`
	// Lead is markdown shown above the list of builds.
	Lead string `yaml:"lead,omitempty" json:"lead,omitempty"`
}

type MDNS struct {
	Enable   bool   `yaml:"enable" json:"enable"`
	Instance string `yaml:"instance,omitempty" json:"instance,omitempty"`
}

// Duration decodes Go duration strings ("30m") from both YAML and JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.parse(raw)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.parse(raw)
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = v
	return nil
}

func Default() File {
	return File{
		Version: 1,
		Server: Server{
			Addr:       ":8080",
			BasePrefix: "/",
		},
		Upstream: Upstream{
			Timeout: Duration{15 * time.Second},
		},
		Cache: Cache{
			TTL:           Duration{30 * time.Minute},
			SweepSchedule: "@every 10m",
			SessionTTL:    Duration{2 * time.Hour},
			MaxSessions:   1000,
		},
		UI: UI{
			Title:    "BulkTracker",
			PageSize: 50,
		},
		MDNS: MDNS{
			Instance: "btdash",
		},
	}
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	return Parse(data, path)
}

// Parse decodes data on top of Default and validates the result. Sources
// ending in .json or .jsonc are read as JSON with comments, everything else
// as YAML.
func Parse(data []byte, source string) (File, error) {
	cfg, err := decode(data, source)
	if err != nil {
		return cfg, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config in %q: %s", source, strings.Join(errs, "; "))
	}
	return cfg, nil
}

func decode(data []byte, source string) (File, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(source)) {
	case ".json", ".jsonc":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("parse JSON in %q: %w", source, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("parse YAML in %q: %w", source, err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

// LoadEnv builds the effective configuration: the file at path (or the
// defaults when path is empty), then a .env file in the working directory,
// then BTDASH_* environment variables.
func LoadEnv(path string) (File, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return File{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		// Validation runs after the environment is applied, so a file may
		// leave upstream.url to BTDASH_UPSTREAM_URL.
		parsed, err := decode(data, path)
		if err != nil {
			return File{}, err
		}
		cfg = parsed
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return File{}, err
	}
	cfg.normalize()
	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (cfg *File) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("BTDASH_ADDR", &cfg.Server.Addr)
	str("BTDASH_BASE_PREFIX", &cfg.Server.BasePrefix)
	str("BTDASH_GRPC_ADDR", &cfg.Server.GRPCAddr)
	str("BTDASH_UPSTREAM_URL", &cfg.Upstream.URL)
	str("BTDASH_CACHE_PATH", &cfg.Cache.Path)
	str("BTDASH_MDNS_INSTANCE", &cfg.MDNS.Instance)
	if v, ok := lookup("BTDASH_MDNS_ENABLE"); ok && strings.TrimSpace(v) != "" {
		enable, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("BTDASH_MDNS_ENABLE: %w", err)
		}
		cfg.MDNS.Enable = enable
	}
	return nil
}

func (cfg *File) normalize() {
	prefix := strings.TrimSpace(cfg.Server.BasePrefix)
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	cfg.Server.BasePrefix = prefix
	cfg.Upstream.URL = strings.TrimSpace(cfg.Upstream.URL)
	if cfg.Upstream.URL != "" && !strings.HasSuffix(cfg.Upstream.URL, "/") {
		cfg.Upstream.URL += "/"
	}
}

func (cfg File) Validate() []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported config version %d", cfg.Version))
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		errs = append(errs, "server.addr is required")
	}
	if strings.Contains(cfg.Server.BasePrefix, "//") {
		errs = append(errs, fmt.Sprintf("server.base_prefix %q must not contain empty segments", cfg.Server.BasePrefix))
	}

	if strings.TrimSpace(cfg.Upstream.URL) == "" {
		errs = append(errs, "upstream.url is required")
	} else if u, err := url.Parse(cfg.Upstream.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("upstream.url %q must be an absolute http(s) URL", cfg.Upstream.URL))
	}
	if cfg.Upstream.Timeout.Duration < 0 {
		errs = append(errs, "upstream.timeout must be >= 0")
	}

	if cfg.Cache.TTL.Duration < 0 {
		errs = append(errs, "cache.ttl must be >= 0")
	}
	if cfg.Cache.SessionTTL.Duration <= 0 {
		errs = append(errs, "cache.session_ttl must be > 0")
	}
	if cfg.Cache.MaxSessions < 1 {
		errs = append(errs, "cache.max_sessions must be >= 1")
	}
	if strings.TrimSpace(cfg.Cache.SweepSchedule) != "" {
		if _, err := cron.ParseStandard(cfg.Cache.SweepSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("cache.sweep_schedule %q: %v", cfg.Cache.SweepSchedule, err))
		}
	}

	if cfg.UI.PageSize < 1 {
		errs = append(errs, "ui.page_size must be >= 1")
	}
	if cfg.MDNS.Enable && strings.TrimSpace(cfg.MDNS.Instance) == "" {
		errs = append(errs, "mdns.instance is required when mdns.enable is set")
	}

	return errs
}
