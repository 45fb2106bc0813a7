package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexvm/wasmgas/types"
)

func defaults() types.VMConfig {
	return types.VMConfig{
		Gas: types.GasConfig{
			MaxGasPerHandler: types.NewGas(10_000_000_000_000),
			HostExportGas:    types.NewGas(10_000),
		},
		Cache: types.CacheOptions{
			MemoryCacheSize:     100,
			InstanceMemoryLimit: types.NewSizeMebi(32),
		},
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wasmgas.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load("", defaults())
	require.NoError(t, err)
	assert.Equal(t, defaults(), config)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"gas": {"max_gas_per_handler": "1000"},
		"wasm_limits": {"max_imports": 20},
		"cache": {"memory_cache_size": 5}
	}`)

	config, err := Load(path, defaults())
	require.NoError(t, err)
	assert.Equal(t, types.NewGas(1000), config.Gas.MaxGasPerHandler)
	assert.Equal(t, types.NewGas(10_000), config.Gas.HostExportGas)
	require.NotNil(t, config.Limits.MaxImports)
	assert.Equal(t, uint32(20), *config.Limits.MaxImports)
	assert.Nil(t, config.Limits.MaxMemoryPages)
	assert.Equal(t, uint32(5), config.Cache.MemoryCacheSize)
	assert.Equal(t, types.NewSizeMebi(32), config.Cache.InstanceMemoryLimit)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"cache": {"memory_cache_size": 5}}`)
	t.Setenv("WASMGAS_CACHE__MEMORY_CACHE_SIZE", "7")
	t.Setenv("WASMGAS_WASM_LIMITS__MAX_MEMORY_PAGES", "16")
	t.Setenv("WASMGAS_GAS__HOST_EXPORT_GAS", "25")

	config, err := Load(path, defaults())
	require.NoError(t, err)
	assert.Equal(t, uint32(7), config.Cache.MemoryCacheSize)
	require.NotNil(t, config.Limits.MaxMemoryPages)
	assert.Equal(t, uint32(16), *config.Limits.MaxMemoryPages)
	assert.Equal(t, types.NewGas(25), config.Gas.HostExportGas)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), defaults())
	require.Error(t, err)

	// gas is string encoded
	_, err = Load(writeConfig(t, `{"gas": {"max_gas_per_handler": 1000}}`), defaults())
	require.ErrorContains(t, err, "cannot unmarshal 1000 into Gas")

	t.Setenv("WASMGAS_CACHE__MEMORY_CACHE_SIZE", "lots")
	_, err = Load("", defaults())
	require.ErrorContains(t, err, "WASMGAS_CACHE__MEMORY_CACHE_SIZE")
}

func TestValidate(t *testing.T) {
	config := defaults()
	config.Gas.HostExportGas = types.ZeroGas
	require.EqualError(t, Validate(config), "gas.host_export_gas must not be zero")

	config = defaults()
	config.Gas.MaxGasPerHandler = types.ZeroGas
	require.EqualError(t, Validate(config), "gas.max_gas_per_handler must not be zero")

	config = defaults()
	config.Gas.HostExportGas = config.Gas.MaxGasPerHandler
	require.Error(t, Validate(config))
}
