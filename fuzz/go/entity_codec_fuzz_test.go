package gofuzz

import (
	"testing"

	"github.com/indexvm/wasmgas/internal/runtime/store"
)

func FuzzEntityCodec(f *testing.F) {
	seed, err := store.EncodeEntity(store.Entity{
		"id":     store.StringValue("0xabc"),
		"supply": store.IntValue(7),
		"owners": store.ListValue(store.BytesValue([]byte{1, 2}), store.NullValue()),
	})
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{0x90})

	f.Fuzz(func(t *testing.T, data []byte) {
		entity, err := store.DecodeEntity(data)
		if err != nil {
			return
		}
		encoded, err := store.EncodeEntity(entity)
		if err != nil {
			t.Fatalf("re-encoding a decoded entity: %v", err)
		}
		again, err := store.DecodeEntity(encoded)
		if err != nil {
			t.Fatalf("decoding a re-encoded entity: %v", err)
		}
		if !entity.Equal(again) {
			t.Fatal("entity changed across a round trip")
		}
		// sizing must never panic on decoded input
		_ = entity.GasSizeOf()
	})
}
