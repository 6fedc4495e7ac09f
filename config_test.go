package arena

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected ByteSize
		wantErr  bool
	}{
		"bare bytes":   {input: "4096", expected: 4096},
		"kibibytes":    {input: "64KiB", expected: 64 << 10},
		"base2 MB":     {input: "1MB", expected: 1 << 20},
		"mebibytes":    {input: "2MiB", expected: 2 << 20},
		"whitespace":   {input: " 8KiB ", expected: 8 << 10},
		"garbage":      {input: "bogus", wantErr: true},
		"empty string": {input: "", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestByteSizeString(t *testing.T) {
	assert.Equal(t, "64KiB", ByteSize(65536).String())
	assert.Equal(t, "1MiB", ByteSize(1<<20).String())
	assert.Equal(t, "0B", ByteSize(0).String())
}

func TestByteSizeYAML(t *testing.T) {
	var v struct {
		Size ByteSize `yaml:"size"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("size: 16KiB\n"), &v))
	assert.Equal(t, ByteSize(16<<10), v.Size)

	require.NoError(t, yaml.Unmarshal([]byte("size: 512\n"), &v))
	assert.Equal(t, ByteSize(512), v.Size)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "size: 512B\n", string(out))

	require.Error(t, yaml.Unmarshal([]byte("size: lots\n"), &v))
}

func TestConfigRegisterFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	assert.Equal(t, DefaultConfig(), cfg)

	require.NoError(t, fs.Parse([]string{"-arena.capacity=2MiB", "-arena.backing=mmap", "-arena.budget-limit=8MiB", "-arena.heap-limit=1GiB"}))
	assert.Equal(t, ByteSize(2<<20), cfg.Capacity)
	assert.Equal(t, BackingMmap, cfg.Backing)
	assert.Equal(t, ByteSize(8<<20), cfg.BudgetLimit)
	assert.Equal(t, ByteSize(1<<30), cfg.HeapLimit)
	require.NoError(t, cfg.Validate())

	require.Error(t, fs.Parse([]string{"-arena.capacity=huge"}))
}

func TestConfigValidate(t *testing.T) {
	tests := map[string]struct {
		cfg     Config
		wantErr bool
	}{
		"defaults":          {cfg: DefaultConfig()},
		"empty backing":     {cfg: Config{Capacity: 1024}},
		"with budget":       {cfg: Config{Capacity: 1024, BudgetLimit: 4096}},
		"zero capacity":     {cfg: Config{Backing: BackingHeap}, wantErr: true},
		"negative capacity": {cfg: Config{Capacity: -1, Backing: BackingHeap}, wantErr: true},
		"unknown backing":   {cfg: Config{Capacity: 1024, Backing: "gpu"}, wantErr: true},
		"negative budget":   {cfg: Config{Capacity: 1024, BudgetLimit: -1}, wantErr: true},
		"budget too small":  {cfg: Config{Capacity: 1024, BudgetLimit: 512}, wantErr: true},
		"negative heap cap": {cfg: Config{Capacity: 1024, HeapLimit: -1}, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}

	err := (&Config{}).Validate()
	require.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestConfigNewBudget(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.NewBudget())

	cfg.BudgetLimit = 1 << 20
	b := cfg.NewBudget()
	require.NotNil(t, b)
	assert.Equal(t, int64(1<<20), b.Limit())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("valid", func(t *testing.T) {
		cfg, err := LoadConfig(write("valid.yaml", "capacity: 1MiB\nbacking: heap\nbudget_limit: 4MiB\nheap_limit: 2MiB\n"))
		require.NoError(t, err)
		assert.Equal(t, Config{Capacity: 1 << 20, Backing: BackingHeap, BudgetLimit: 4 << 20, HeapLimit: 2 << 20}, cfg)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		cfg, err := LoadConfig(write("partial.yaml", "budget_limit: 1MiB\n"))
		require.NoError(t, err)
		assert.Equal(t, ByteSize(DefaultCapacity), cfg.Capacity)
		assert.Equal(t, DefaultBacking().Name(), cfg.Backing)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := LoadConfig(write("empty.yaml", ""))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadConfig(write("unknown.yaml", "capacity: 1KiB\nchunk_size: 4KiB\n"))
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadConfig(write("invalid.yaml", "capacity: 0\n"))
		require.ErrorIs(t, err, ErrInvalidCapacity)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestNewFromConfig(t *testing.T) {
	cfg := Config{Capacity: 8 << 10, Backing: BackingMmap}
	a, err := NewFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 8<<10, a.Capacity())
	assert.Equal(t, BackingMmap, a.backing.Name())
	a.Release()

	rb := &recordingBacking{}
	a, err = NewFromConfig(cfg, WithBacking(rb))
	require.NoError(t, err)
	assert.Equal(t, 1, rb.allocs, "caller options override the configured backing")
	a.Release()

	_, err = NewFromConfig(Config{Capacity: 1024, Backing: "gpu"})
	require.Error(t, err)

	_, err = NewFromConfig(Config{Capacity: 4096, Backing: BackingHeap, HeapLimit: 1024})
	require.ErrorIs(t, err, ErrAllocationFailure)

	a, err = NewFromConfig(Config{Capacity: 1024, Backing: BackingHeap, HeapLimit: 1024})
	require.NoError(t, err)
	assert.Equal(t, HeapAllocator{Limit: 1024}, a.backing)
	a.Release()
}
