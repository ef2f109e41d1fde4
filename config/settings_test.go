package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, DefaultDetailCullingChunkSize, s.DetailCullingChunkSize)
	assert.Positive(t, s.WorkerCount())

	s.Workers = 3
	assert.Equal(t, 3, s.WorkerCount())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"negative threshold", func(s *Settings) { s.DetailCullingThreshold = -1 }},
		{"zero chunk", func(s *Settings) { s.DetailCullingChunkSize = 0 }},
		{"negative workers", func(s *Settings) { s.Workers = -2 }},
		{"too many cascades", func(s *Settings) { s.ShadowCascades = 9 }},
		{"no shadow distance", func(s *Settings) { s.ShadowDistance = 0 }},
		{"unknown tree", func(s *Settings) { s.Tree = "rtree" }},
		{"NaN threshold", func(s *Settings) { s.DetailCullingThreshold = math32.NaN() }},
		{"NaN shadow distance", func(s *Settings) { s.ShadowDistance = math32.NaN() }},
		{"infinite shadow distance", func(s *Settings) { s.ShadowDistance = math32.Inf(1) }},
		{"NaN shadow distance without shadows", func(s *Settings) {
			s.ShadowsEnabled = false
			s.ShadowDistance = math32.NaN()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.modify(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)
		})
	}

	s := Default()
	s.ShadowsEnabled = false
	s.ShadowDistance = 0
	assert.NoError(t, s.Validate(), "distance is unused without shadows")

	s = Default()
	s.DetailCullingThreshold = math32.Inf(1)
	assert.NoError(t, s.Validate(), "an infinite threshold culls everything")
}

func TestParseRejectsNonFinite(t *testing.T) {
	_, err := Parse([]byte("detail_culling_threshold = nan\n"), ".toml")
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = Parse([]byte("shadow_distance = nan\n"), ".toml")
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = Parse([]byte("shadow_distance: .inf\n"), ".yaml")
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestParseTOML(t *testing.T) {
	src := `
detail_culling_threshold = 0.05
multithreaded_detail_culling = false
workers = 6
tree = "octree"
`
	s, err := Parse([]byte(src), ".toml")
	require.NoError(t, err)

	want := Default()
	want.DetailCullingThreshold = 0.05
	want.MultithreadedDetailCulling = false
	want.Workers = 6
	want.Tree = TreeOctree
	assert.Equal(t, want, s)

	_, err = Parse([]byte("unknown_key = 1\n"), ".toml")
	assert.Error(t, err)
	_, err = Parse([]byte(`tree = "bsp"`), ".toml")
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestParseYAML(t *testing.T) {
	src := `
detail_culling_threshold: 0.1
shadows_enabled: false
shadow_cascades: 2
tree: quadtree
`
	s, err := Parse([]byte(src), ".yml")
	require.NoError(t, err)
	assert.Equal(t, float32(0.1), s.DetailCullingThreshold)
	assert.False(t, s.ShadowsEnabled)
	assert.Equal(t, 2, s.ShadowCascades)
	assert.Equal(t, TreeQuadtree, s.Tree)
	assert.True(t, s.MultithreadedCulling, "defaults kept")

	s, err = Parse(nil, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	_, err = Parse([]byte("workerz: 2\n"), ".yaml")
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	s := Default()
	s.DetailCullingThreshold = 0.25
	s.Tree = TreeQuadtree
	s.Workers = 2

	for _, ext := range []string{".toml", ".yaml"} {
		data, err := Encode(s, ext)
		require.NoError(t, err, ext)
		got, err := Parse(data, ext)
		require.NoError(t, err, ext)
		assert.Equal(t, s, got, ext)
	}

	_, err := Encode(s, ".ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "culling.toml")
	require.NoError(t, os.WriteFile(path, []byte("workers = 4\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Workers)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ini := filepath.Join(dir, "culling.ini")
	require.NoError(t, os.WriteFile(ini, nil, 0o644))
	_, err = Load(ini)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "culling.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 1\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan Settings, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(s Settings) { changes <- s })
	}()

	// give the watcher time to register before writing
	var got Settings
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("workers: 7\n"), 0o644)
		select {
		case got = <-changes:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 7, got.Workers)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
