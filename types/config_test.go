package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Ptr[T any](v T) *T {
	return &v
}

func TestConfigJSON(t *testing.T) {
	config := VMConfig{
		Gas: GasConfig{
			MaxGasPerHandler: NewGas(1000),
			HostExportGas:    NewGas(10),
		},
		Limits: WasmLimits{
			MaxImports:     Ptr(uint32(100)),
			MaxMemoryPages: Ptr(uint32(16)),
		},
		Cache: CacheOptions{
			MemoryCacheSize:     10,
			InstanceMemoryLimit: NewSizeMebi(32),
		},
	}
	expected := `{"gas":{"max_gas_per_handler":"1000","host_export_gas":"10"},"wasm_limits":{"max_imports":100,"max_memory_pages":16},"cache":{"memory_cache_size":10,"instance_memory_limit":33554432}}`

	bz, err := json.Marshal(config)
	require.NoError(t, err)
	assert.Equal(t, expected, string(bz))

	var decoded VMConfig
	require.NoError(t, json.Unmarshal(bz, &decoded))
	assert.Equal(t, config, decoded)
}

func TestSizeHelpers(t *testing.T) {
	assert.Equal(t, uint32(7), NewSize(7).Bytes())
	assert.Equal(t, uint32(2048), NewSizeKibi(2).Bytes())
	assert.Equal(t, uint32(3*1024*1024), NewSizeMebi(3).Bytes())
	assert.Equal(t, uint32(1024*1024*1024), NewSizeGibi(1).Bytes())
}
