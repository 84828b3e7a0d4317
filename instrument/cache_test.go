package instrument

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := &Store{Dir: t.TempDir()}
	strike := 2800.0
	items := map[string]Instrument{
		"au2512":       {Exchange: "SHFE", Multiple: 1000, PriceTick: 0.02},
		"m2501-C-2800": {Exchange: "DCE", Multiple: 10, StrikePrice: &strike},
	}
	require.NoError(t, store.Save("2026-08-29", items))

	loaded, ok, err := store.Load("2026-08-29")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, items, loaded)
}

func TestStoreMissingFile(t *testing.T) {
	store := &Store{Dir: t.TempDir()}
	_, ok, err := store.Load("2026-08-29")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreStaleDateMisses(t *testing.T) {
	store := &Store{Dir: t.TempDir()}
	require.NoError(t, store.Save("2026-08-28", map[string]Instrument{"au2512": {}}))

	_, ok, err := store.Load("2026-08-29")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreOverwrite(t *testing.T) {
	store := &Store{Dir: t.TempDir()}
	require.NoError(t, store.Save("2026-08-28", map[string]Instrument{"au2512": {}}))
	require.NoError(t, store.Save("2026-08-29", map[string]Instrument{"rb2510": {}}))

	loaded, ok, err := store.Load("2026-08-29")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, loaded, "rb2510")
	assert.NotContains(t, loaded, "au2512")
}

func TestStoreCorruptBody(t *testing.T) {
	dir := t.TempDir()
	store := &Store{Dir: dir}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instruments.dat"), []byte("2026-08-29\nnot json"), 0644))

	_, _, err := store.Load("2026-08-29")
	assert.Error(t, err)
}

func TestStoreHeaderFirstLine(t *testing.T) {
	dir := t.TempDir()
	store := &Store{Dir: dir}
	require.NoError(t, store.Save("2026-08-29", map[string]Instrument{}))

	raw, err := os.ReadFile(filepath.Join(dir, "instruments.dat"))
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), raw[10])
	assert.Equal(t, "2026-08-29", string(raw[:10]))
}
