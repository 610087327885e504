package folder

import "time"

// Defaults applied by NewConfig.
const (
	DefaultIndexFilename  = ".index"
	DefaultLabelsFilename = ".mh_sequences"
	DefaultLockSuffix     = ".lock"
	DefaultLazyThreshold  = 32 * 1024
	DefaultLockTimeout    = 10 * time.Second
	DefaultLockPoll       = 100 * time.Millisecond
)

// DefaultIndexFields are the header fields a lazily loaded message answers
// without touching its backing file. Enough for a summary line.
var DefaultIndexFields = []string{
	"From", "To", "Cc", "Subject", "Date", "Message-Id", "Status", "Content-Type",
}

// Config carries everything a layout needs to open a folder. Build one with
// NewConfig; zero values are not usable.
type Config struct {
	Access         Access
	Create         bool
	KeepIndex      bool
	IndexFilename  string
	LabelsFilename string
	LockSuffix     string
	LazyThreshold  int64
	IndexFields    []string
	LockTimeout    time.Duration
	LockPoll       time.Duration
	WrapWidth      int
}

func NewConfig(options ...Option) Config {
	cfg := Config{
		Access:         ReadOnly,
		KeepIndex:      true,
		IndexFilename:  DefaultIndexFilename,
		LabelsFilename: DefaultLabelsFilename,
		LockSuffix:     DefaultLockSuffix,
		LazyThreshold:  DefaultLazyThreshold,
		IndexFields:    DefaultIndexFields,
		LockTimeout:    DefaultLockTimeout,
		LockPoll:       DefaultLockPoll,
	}

	for _, opt := range options {
		opt.config(&cfg)
	}

	return cfg
}

type Option interface {
	config(*Config)
}

// WithAccess sets the open mode.
func WithAccess(access Access) Option {
	return &withAccess{access: access}
}

type withAccess struct {
	access Access
}

func (opt withAccess) config(cfg *Config) {
	cfg.Access = opt.access
}

// WithCreate makes open create the backing directory when missing.
func WithCreate() Option {
	return &withCreate{}
}

type withCreate struct{}

func (opt withCreate) config(cfg *Config) {
	cfg.Create = true
}

// WithKeepIndex controls whether the header index cache is read and written.
func WithKeepIndex(keep bool) Option {
	return &withKeepIndex{keep: keep}
}

type withKeepIndex struct {
	keep bool
}

func (opt withKeepIndex) config(cfg *Config) {
	cfg.KeepIndex = opt.keep
}

// WithIndexFilename overrides the index cache filename.
func WithIndexFilename(name string) Option {
	return &withIndexFilename{name: name}
}

type withIndexFilename struct {
	name string
}

func (opt withIndexFilename) config(cfg *Config) {
	cfg.IndexFilename = opt.name
}

// WithLabelsFilename overrides the labels filename.
func WithLabelsFilename(name string) Option {
	return &withLabelsFilename{name: name}
}

type withLabelsFilename struct {
	name string
}

func (opt withLabelsFilename) config(cfg *Config) {
	cfg.LabelsFilename = opt.name
}

// WithLazyThreshold sets the file size above which messages are loaded
// lazily instead of parsed at open time. Zero means always lazy.
func WithLazyThreshold(threshold int64) Option {
	return &withLazyThreshold{threshold: threshold}
}

type withLazyThreshold struct {
	threshold int64
}

func (opt withLazyThreshold) config(cfg *Config) {
	cfg.LazyThreshold = opt.threshold
}

// WithIndexFields sets the header fields a lazily loaded message can answer
// without a full parse.
func WithIndexFields(fields []string) Option {
	return &withIndexFields{fields: fields}
}

type withIndexFields struct {
	fields []string
}

func (opt withIndexFields) config(cfg *Config) {
	cfg.IndexFields = opt.fields
}

// WithLockTimeout bounds how long open waits for the folder lock, and how
// often it retries.
func WithLockTimeout(timeout, poll time.Duration) Option {
	return &withLockTimeout{timeout: timeout, poll: poll}
}

type withLockTimeout struct {
	timeout time.Duration
	poll    time.Duration
}

func (opt withLockTimeout) config(cfg *Config) {
	cfg.LockTimeout = opt.timeout
	cfg.LockPoll = opt.poll
}

// WithWrapWidth sets the header fold width used when writing messages out.
// Zero keeps the default.
func WithWrapWidth(width int) Option {
	return &withWrapWidth{width: width}
}

type withWrapWidth struct {
	width int
}

func (opt withWrapWidth) config(cfg *Config) {
	cfg.WrapWidth = opt.width
}
