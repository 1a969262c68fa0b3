package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	domainconfig "trendscout/domain/config"
	"trendscout/pkg/utils"
)

// LoadExplorationConfig reads the tunables file over the defaults. An empty
// path returns the defaults. Unknown keys are rejected.
func LoadExplorationConfig(path string) (*domainconfig.ExplorationConfig, error) {
	if path == "" {
		return domainconfig.DefaultExplorationConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading exploration config: %w", err)
	}
	return ParseExplorationConfig(data)
}

// ParseExplorationConfig decodes and validates tunables YAML
func ParseExplorationConfig(data []byte) (*domainconfig.ExplorationConfig, error) {
	cfg := domainconfig.DefaultExplorationConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing exploration config: %w", err)
	}

	if err := utils.ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid exploration config: %w", err)
	}
	return cfg, nil
}

// ExplorationConfigHolder hands the engine the tunables in force. It is
// safe for concurrent use; each run reads one snapshot.
type ExplorationConfigHolder struct {
	current atomic.Pointer[domainconfig.ExplorationConfig]
}

// NewExplorationConfigHolder creates a holder. A nil config holds the defaults.
func NewExplorationConfigHolder(initial *domainconfig.ExplorationConfig) *ExplorationConfigHolder {
	h := &ExplorationConfigHolder{}
	h.Store(initial)
	return h
}

// Current implements ports.ExplorationConfigSource
func (h *ExplorationConfigHolder) Current() *domainconfig.ExplorationConfig {
	return h.current.Load().Clone()
}

// Store replaces the tunables for runs that start afterwards
func (h *ExplorationConfigHolder) Store(cfg *domainconfig.ExplorationConfig) {
	h.current.Store(cfg.Clone())
}
