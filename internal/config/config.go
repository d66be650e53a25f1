package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"tagbadge/internal/badge"
)

type ServerConfig struct {
	Addr      string  `json:"addr,omitempty" toml:"addr"`
	RateLimit float64 `json:"rate_limit,omitempty" toml:"rate_limit"`
}

type SheetConfig struct {
	Name          string       `json:"name" toml:"name"`
	Width         int          `json:"width" toml:"width"`
	Height        int          `json:"height" toml:"height"`
	Background    string       `json:"background,omitempty" toml:"background"`
	Dark          bool         `json:"dark,omitempty" toml:"dark"`
	FontFile      string       `json:"font_file,omitempty" toml:"font_file"`
	CacheCapacity int          `json:"cache_capacity,omitempty" toml:"cache_capacity"`
	RenderWorkers int          `json:"render_workers,omitempty" toml:"render_workers"`
	OutputFile    string       `json:"output_file,omitempty" toml:"output_file"`
	LogLevel      string       `json:"log_level,omitempty" toml:"log_level"`
	LogFile       string       `json:"log_file,omitempty" toml:"log_file"`
	LogMaxSizeMB  int          `json:"log_max_size_mb,omitempty" toml:"log_max_size_mb"`
	LogMaxBackups int          `json:"log_max_backups,omitempty" toml:"log_max_backups"`
	Server        ServerConfig `json:"server,omitempty" toml:"server"`
	Tags          []badge.Tag  `json:"tags" toml:"tags"`
	Items         []ItemConfig `json:"items" toml:"items"`
}

type ItemConfig struct {
	Tag    string `json:"tag" toml:"tag"`
	Count  int    `json:"count,omitempty" toml:"count"`
	X      int    `json:"x" toml:"x"`
	Y      int    `json:"y" toml:"y"`
	Width  int    `json:"width" toml:"width"`
	Height int    `json:"height" toml:"height"`
}

// GetCount treats a missing count as a single occurrence.
func (item *ItemConfig) GetCount() int {
	if item.Count == 0 {
		return 1
	}
	return item.Count
}

var configExts = []string{".json", ".toml"}

type ConfigManager struct {
	configDir string
	configs   map[string]*SheetConfig
	mutex     sync.Mutex
}

func NewConfigManager(configDir string) *ConfigManager {
	return &ConfigManager{
		configDir: configDir,
		configs:   make(map[string]*SheetConfig),
	}
}

// Dir returns the directory configs are read from.
func (cm *ConfigManager) Dir() string {
	return cm.configDir
}

// Path returns the file backing configName, preferring .json over .toml.
func (cm *ConfigManager) Path(configName string) (string, error) {
	for _, ext := range configExts {
		configFile := filepath.Join(cm.configDir, configName+ext)
		if _, err := os.Stat(configFile); err == nil {
			return configFile, nil
		}
	}
	return "", fmt.Errorf("config file not found: %s", filepath.Join(cm.configDir, configName+".json"))
}

// LoadConfig returns the named config, reading it on first use.
func (cm *ConfigManager) LoadConfig(configName string) (*SheetConfig, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if config, exists := cm.configs[configName]; exists {
		return config, nil
	}

	config, err := cm.read(configName)
	if err != nil {
		return nil, err
	}
	cm.configs[configName] = config
	return config, nil
}

// ReloadConfig reads the named config again, replacing the memoized copy
// only when the new one is valid.
func (cm *ConfigManager) ReloadConfig(configName string) (*SheetConfig, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	config, err := cm.read(configName)
	if err != nil {
		return nil, err
	}
	cm.configs[configName] = config
	return config, nil
}

func (cm *ConfigManager) read(configName string) (*SheetConfig, error) {
	configFile, err := cm.Path(configName)
	if err != nil {
		return nil, err
	}
	config, err := ReadFile(configFile)
	if err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = configName
	}
	return config, nil
}

// ReadFile parses a single config file by extension and validates it.
func ReadFile(configFile string) (*SheetConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config SheetConfig
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".toml":
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(configFile), err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(configFile), err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filepath.Base(configFile), err)
	}
	return &config, nil
}

func (cm *ConfigManager) ListConfigs() ([]string, error) {
	files, err := os.ReadDir(cm.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		ext := filepath.Ext(file.Name())
		if ext != ".json" && ext != ".toml" {
			continue
		}
		name := strings.TrimSuffix(file.Name(), ext)
		if !seen[name] {
			seen[name] = true
			configs = append(configs, name)
		}
	}
	sort.Strings(configs)

	return configs, nil
}

// Validate checks that items point at known tags and have a drawable size.
func (config *SheetConfig) Validate() error {
	var errs []error
	tags := make(map[string]bool, len(config.Tags))
	for i, tag := range config.Tags {
		if tags[tag.Title] {
			errs = append(errs, fmt.Errorf("tag %d: duplicate title %q", i, tag.Title))
		}
		tags[tag.Title] = true
	}
	for i, item := range config.Items {
		if !tags[item.Tag] {
			errs = append(errs, fmt.Errorf("item %d: unknown tag %q", i, item.Tag))
		}
		if item.Width <= 0 || item.Height <= 0 {
			errs = append(errs, fmt.Errorf("item %d: size %dx%d", i, item.Width, item.Height))
		}
		if item.Count < 0 {
			errs = append(errs, fmt.Errorf("item %d: negative count %d", i, item.Count))
		}
	}
	return errors.Join(errs...)
}

// Tag returns the tag with the given title.
func (config *SheetConfig) Tag(title string) (badge.Tag, bool) {
	for _, tag := range config.Tags {
		if tag.Title == title {
			return tag, true
		}
	}
	return badge.Tag{}, false
}

func (config *SheetConfig) GetWidth() int {
	if config.Width > 0 {
		return config.Width
	}
	width := 0
	for _, item := range config.Items {
		width = max(width, item.X+item.Width)
	}
	if width == 0 {
		return 320
	}
	return width
}

func (config *SheetConfig) GetHeight() int {
	if config.Height > 0 {
		return config.Height
	}
	height := 0
	for _, item := range config.Items {
		height = max(height, item.Y+item.Height)
	}
	if height == 0 {
		return 240
	}
	return height
}

func (config *SheetConfig) GetBackground() string {
	if config.Background != "" {
		return config.Background
	}
	return "#1a1a1a"
}

func (config *SheetConfig) GetOutputFile() string {
	if config.OutputFile != "" {
		return config.OutputFile
	}
	return "badges.png"
}

func (config *SheetConfig) GetRenderWorkers() int {
	if config.RenderWorkers > 0 {
		return config.RenderWorkers
	}
	return 4
}

func (config *SheetConfig) GetServerAddr() string {
	if config.Server.Addr != "" {
		return config.Server.Addr
	}
	return ":8206"
}

func (config *SheetConfig) GetRateLimit() float64 {
	if config.Server.RateLimit > 0 {
		return config.Server.RateLimit
	}
	return 20
}
