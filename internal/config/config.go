/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the per-user YAML configuration, applies SLD_*
// environment overrides and keeps the upload token in the OS keyring.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"slidedeck/internal/geom"
	applog "slidedeck/internal/log"
)

// CurrentVersion is written as config_version.
const CurrentVersion = 1

type GeneralConfig struct {
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
}

// UploadConfig points the editor at the upload endpoint. The token lives in the keyring.
type UploadConfig struct {
	BaseURL      string `yaml:"base_url"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	PreviewMaxPx int    `yaml:"preview_max_px"`
}

type EditorConfig struct {
	NoticeTTLMs   int        `yaml:"notice_ttl_ms"`
	ToolbarOffset [2]float64 `yaml:"toolbar_offset"`
}

// BackendConfig configures the serve command.
type BackendConfig struct {
	Addr       string `yaml:"addr"`
	StorageDir string `yaml:"storage_dir"`
	PublicURL  string `yaml:"public_url"`
	PGDSN      string `yaml:"pg_dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// AppConfig is the user-editable configuration persisted to config.yaml.
// Environment variables are read-only overrides applied at load time.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Upload        UploadConfig  `yaml:"upload"`
	Editor        EditorConfig  `yaml:"editor"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: CurrentVersion,
		General:       GeneralConfig{Theme: "system"},
		Upload:        UploadConfig{BaseURL: "http://localhost:8080", TimeoutMs: 30000, PreviewMaxPx: 1024},
		Editor:        EditorConfig{NoticeTTLMs: 4000, ToolbarOffset: [2]float64{0, -56}},
		Backend:       BackendConfig{Addr: ":8080", StorageDir: "uploads"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// UploadTimeout returns the upload request timeout.
func (c AppConfig) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutMs) * time.Millisecond
}

// NoticeTTL returns how long notifications stay visible.
func (c AppConfig) NoticeTTL() time.Duration {
	return time.Duration(c.Editor.NoticeTTLMs) * time.Millisecond
}

// ToolbarOffset returns the toolbar's offset from its element's top-left corner.
func (c AppConfig) ToolbarOffset() geom.Pt {
	return geom.Pt{X: c.Editor.ToolbarOffset[0], Y: c.Editor.ToolbarOffset[1]}
}

// LogOptions converts the logging section into logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}

// Env var names used as overrides.
const (
	EnvConfigDir      = "SLD_CONFIG_DIR"
	EnvTheme          = "SLD_THEME"
	EnvTelemetryOptIn = "SLD_TELEMETRY_OPT_IN"
	EnvUploadURL      = "SLD_UPLOAD_URL"
	EnvUploadTimeout  = "SLD_UPLOAD_TIMEOUT_MS"
	EnvPreviewMaxPx   = "SLD_PREVIEW_MAX_PX"
	EnvNoticeTTL      = "SLD_NOTICE_TTL_MS"
	EnvBackendAddr    = "SLD_BACKEND_ADDR"
	EnvStorageDir     = "SLD_STORAGE_DIR"
	EnvPublicURL      = "SLD_PUBLIC_URL"
	EnvPGDSN          = "SLD_PG_DSN"
	EnvServerToken    = "SLD_SERVER_TOKEN"
	EnvLogLevel       = "SLD_LOG_LEVEL"
	EnvLogFormat      = "SLD_LOG_FORMAT"
	EnvLogSource      = "SLD_LOG_SOURCE"
	EnvLogFile        = "SLD_LOG_FILE"
)

type override struct {
	key   string
	env   string
	apply func(c *AppConfig, v string)
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// overrides lists every env override; apply funcs receive the config being loaded.
var overrides = []override{
	{"general.theme", EnvTheme, func(c *AppConfig, v string) { c.General.Theme = strings.ToLower(v) }},
	{"general.telemetry_opt_in", EnvTelemetryOptIn, func(c *AppConfig, v string) { c.General.TelemetryOptIn = parseBool(v) }},
	{"upload.base_url", EnvUploadURL, func(c *AppConfig, v string) { c.Upload.BaseURL = v }},
	{"upload.timeout_ms", EnvUploadTimeout, func(c *AppConfig, v string) { setInt(&c.Upload.TimeoutMs, v) }},
	{"upload.preview_max_px", EnvPreviewMaxPx, func(c *AppConfig, v string) { setInt(&c.Upload.PreviewMaxPx, v) }},
	{"editor.notice_ttl_ms", EnvNoticeTTL, func(c *AppConfig, v string) { setInt(&c.Editor.NoticeTTLMs, v) }},
	{"backend.addr", EnvBackendAddr, func(c *AppConfig, v string) { c.Backend.Addr = v }},
	{"backend.storage_dir", EnvStorageDir, func(c *AppConfig, v string) { c.Backend.StorageDir = v }},
	{"backend.public_url", EnvPublicURL, func(c *AppConfig, v string) { c.Backend.PublicURL = v }},
	{"backend.pg_dsn", EnvPGDSN, func(c *AppConfig, v string) { c.Backend.PGDSN = v }},
	{"logging.level", EnvLogLevel, func(c *AppConfig, v string) { c.Logging.Level = strings.ToLower(v) }},
	{"logging.format", EnvLogFormat, func(c *AppConfig, v string) { c.Logging.Format = strings.ToLower(v) }},
	{"logging.source", EnvLogSource, func(c *AppConfig, v string) { c.Logging.Source = parseBool(v) }},
	{"logging.file", EnvLogFile, func(c *AppConfig, v string) { c.Logging.File = v }},
}

func applyEnvOverrides(cfg *AppConfig) {
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			o.apply(cfg, v)
		}
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	for _, o := range overrides {
		if o.key == key && strings.TrimSpace(os.Getenv(o.env)) != "" {
			return o.env, true
		}
	}
	return "", false
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "slidedeck", "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The upload token comes from the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", err
	}
	applyEnvOverrides(&cfg)
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if err != nil {
		tok = ""
	}
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cfg.ConfigVersion = CurrentVersion
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return tokenStore.Set(keyringService, keyringToken, token)
	}
	return nil
}

// ServerToken returns the bearer token the serve command requires, from the
// environment first and the keyring second. Empty disables auth.
func ServerToken() string {
	if v := strings.TrimSpace(os.Getenv(EnvServerToken)); v != "" {
		return v
	}
	tok, err := tokenStore.Get(keyringService, keyringServerToken)
	if err != nil {
		return ""
	}
	return tok
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.General.Theme); s != "" {
		dst.General.Theme = strings.ToLower(s)
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	if s := strings.TrimSpace(src.Upload.BaseURL); s != "" {
		dst.Upload.BaseURL = s
	}
	if src.Upload.TimeoutMs > 0 {
		dst.Upload.TimeoutMs = src.Upload.TimeoutMs
	}
	if src.Upload.PreviewMaxPx > 0 {
		dst.Upload.PreviewMaxPx = src.Upload.PreviewMaxPx
	}

	if src.Editor.NoticeTTLMs > 0 {
		dst.Editor.NoticeTTLMs = src.Editor.NoticeTTLMs
	}
	if src.Editor.ToolbarOffset != [2]float64{} {
		dst.Editor.ToolbarOffset = src.Editor.ToolbarOffset
	}

	if s := strings.TrimSpace(src.Backend.Addr); s != "" {
		dst.Backend.Addr = s
	}
	if s := strings.TrimSpace(src.Backend.StorageDir); s != "" {
		dst.Backend.StorageDir = s
	}
	dst.Backend.PublicURL = strings.TrimSpace(src.Backend.PublicURL)
	dst.Backend.PGDSN = strings.TrimSpace(src.Backend.PGDSN)

	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}
