// Package config loads a VMConfig from defaults, an optional JSON file and the
// environment, in that order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"

	"github.com/indexvm/wasmgas/types"
)

// EnvPrefix prefixes every environment override. Nested keys are separated by a
// double underscore, e.g. WASMGAS_CACHE__MEMORY_CACHE_SIZE.
const EnvPrefix = "WASMGAS_"

// numericKeys are decoded from the environment as numbers. Gas values stay
// strings, which is how they are encoded in JSON.
var numericKeys = map[string]bool{
	"cache.memory_cache_size":      true,
	"cache.instance_memory_limit":  true,
	"wasm_limits.max_imports":      true,
	"wasm_limits.max_memory_pages": true,
}

// Load merges defaults, the JSON file at path and the environment into a VMConfig.
// An empty path skips the file.
func Load(path string, defaults types.VMConfig) (types.VMConfig, error) {
	k := koanf.New(".")

	raw, err := json.Marshal(defaults)
	if err != nil {
		return types.VMConfig{}, fmt.Errorf("encoding defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(raw), kjson.Parser()); err != nil {
		return types.VMConfig{}, fmt.Errorf("loading defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			return types.VMConfig{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	var envErr error
	provider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
		if !numericKeys[name] {
			return name, value
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil && envErr == nil {
			envErr = fmt.Errorf("environment variable %s: %w", key, err)
		}
		return name, n
	})
	if err := k.Load(provider, nil); err != nil {
		return types.VMConfig{}, fmt.Errorf("loading environment: %w", err)
	}
	if envErr != nil {
		return types.VMConfig{}, envErr
	}

	// round trip through JSON so the custom decoders of Gas and Size apply
	merged, err := json.Marshal(k.Raw())
	if err != nil {
		return types.VMConfig{}, err
	}
	var config types.VMConfig
	if err := json.Unmarshal(merged, &config); err != nil {
		return types.VMConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	return config, Validate(config)
}

// Validate rejects configs the VM cannot run with.
func Validate(config types.VMConfig) error {
	if config.Gas.MaxGasPerHandler.IsZero() {
		return fmt.Errorf("gas.max_gas_per_handler must not be zero")
	}
	if config.Gas.HostExportGas.IsZero() {
		return fmt.Errorf("gas.host_export_gas must not be zero")
	}
	if config.Gas.HostExportGas.AtLeast(config.Gas.MaxGasPerHandler) {
		return fmt.Errorf("gas.host_export_gas %s leaves no budget below max_gas_per_handler %s",
			config.Gas.HostExportGas, config.Gas.MaxGasPerHandler)
	}
	return nil
}
