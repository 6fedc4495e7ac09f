package arena

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/units"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultCapacity is the capacity used when none is configured (64 KiB).
const DefaultCapacity = 1 << 16

var supportedBackings = []string{BackingHeap, BackingMmap}

// ByteSize is a byte count that reads and prints human sizes such as "64KiB"
// or "1MB" (base 2). Bare integers are taken as bytes.
type ByteSize int64

// ParseByteSize parses s as a ByteSize.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ByteSize(n), nil
	}
	n, err := units.ParseBase2Bytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "parse byte size %q", s)
	}
	return ByteSize(n), nil
}

func (b ByteSize) String() string {
	return units.Base2Bytes(b).String()
}

// Set implements flag.Value.
func (b *ByteSize) Set(s string) error {
	n, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = n
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	return b.Set(string(text))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return b.Set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// Config describes an owning arena.
type Config struct {
	Capacity    ByteSize `yaml:"capacity"`
	Backing     string   `yaml:"backing"`
	BudgetLimit ByteSize `yaml:"budget_limit"`
	HeapLimit   ByteSize `yaml:"heap_limit"`
}

// DefaultConfig returns the configuration registered as flag defaults.
func DefaultConfig() Config {
	return Config{
		Capacity: ByteSize(DefaultCapacity),
		Backing:  DefaultBacking().Name(),
	}
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix(f, "arena.")
}

func (cfg *Config) RegisterFlagsWithPrefix(f *flag.FlagSet, prefix string) {
	def := DefaultConfig()
	cfg.Capacity = def.Capacity
	cfg.BudgetLimit = def.BudgetLimit
	cfg.HeapLimit = def.HeapLimit
	f.Var(&cfg.Capacity, prefix+"capacity", "Capacity of the arena buffer, e.g. 64KiB or 4MiB.")
	f.StringVar(&cfg.Backing, prefix+"backing", def.Backing, fmt.Sprintf("Where the arena buffer is allocated. Supported values: %s.", strings.Join(supportedBackings, ", ")))
	f.Var(&cfg.BudgetLimit, prefix+"budget-limit", "Maximum bytes held by all arenas sharing the budget. 0 to disable.")
	f.Var(&cfg.HeapLimit, prefix+"heap-limit", "Largest buffer the heap backing hands out. 0 to use the runtime memory limit (GOMEMLIMIT).")
}

func (cfg *Config) Validate() error {
	if cfg.Capacity <= 0 {
		return errors.Wrapf(ErrInvalidCapacity, "arena config capacity %s", cfg.Capacity)
	}
	if int64(cfg.Capacity) > math.MaxInt {
		return errors.Errorf("arena config capacity %s exceeds the addressable size", cfg.Capacity)
	}
	if _, err := BackingByName(cfg.Backing); err != nil {
		return errors.Wrap(err, "arena config")
	}
	if cfg.BudgetLimit < 0 {
		return errors.Errorf("arena config budget limit %d must not be negative", int64(cfg.BudgetLimit))
	}
	if cfg.HeapLimit < 0 {
		return errors.Errorf("arena config heap limit %d must not be negative", int64(cfg.HeapLimit))
	}
	if cfg.BudgetLimit > 0 && cfg.BudgetLimit < cfg.Capacity {
		return errors.Errorf("arena config budget limit %s is smaller than capacity %s", cfg.BudgetLimit, cfg.Capacity)
	}
	return nil
}

// NewBudget returns the Budget described by cfg, or nil when no limit is set.
func (cfg *Config) NewBudget() *Budget {
	if cfg.BudgetLimit <= 0 {
		return nil
	}
	return NewBudget(int64(cfg.BudgetLimit))
}

// LoadConfig reads a YAML config file on top of DefaultConfig. Unknown
// fields are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open arena config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, errors.Wrapf(err, "decode arena config %s", path)
	}
	return cfg, cfg.Validate()
}

// NewFromConfig validates cfg and creates an owning arena from it. Options
// given by the caller take precedence over the configured backing.
func NewFromConfig(cfg Config, opts ...Option) (*Arena, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backing, err := cfg.backingAllocator()
	if err != nil {
		return nil, err
	}
	return New(int(cfg.Capacity), append([]Option{WithBacking(backing)}, opts...)...)
}

func (cfg *Config) backingAllocator() (BackingAllocator, error) {
	backing, err := BackingByName(cfg.Backing)
	if err != nil {
		return nil, err
	}
	if _, ok := backing.(HeapAllocator); ok {
		return HeapAllocator{Limit: int64(cfg.HeapLimit)}, nil
	}
	return backing, nil
}
