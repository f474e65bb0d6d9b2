// internal/config/model.go
//
// Typed configuration model for vitrine.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `VITRINE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with `vault:` is resolved through the
// SecretResolver *before* unmarshalling, so the model never stores Vault
// URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Durations are Go duration strings ("5m", "2s").

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.  AdminAddr serves the provisioning API and
// /metrics; leave it blank to disable the admin listener.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	AdminAddr    string        `koanf:"admin_addr"    validate:"omitempty,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`
}

//
// Database section
//

// Database holds the DSN and pool sizes.  DSN may be a vault: reference.
// Leave it blank to run on the in-memory stores.
type Database struct {
	DSN     string `koanf:"dsn"`
	MaxOpen int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle int    `koanf:"max_idle" validate:"gte=0"`
}

//
// Sites section
//

// Sites tunes the tenant resolver.
type Sites struct {
	BaseDomain      string        `koanf:"base_domain"       validate:"required,fqdn"`
	LocalhostAlias  string        `koanf:"localhost_alias"`
	CacheTTL        time.Duration `koanf:"cache_ttl"         validate:"gte=0"`
	CacheIdleTTL    time.Duration `koanf:"cache_idle_ttl"    validate:"gte=0"`
	CacheMaxEntries int           `koanf:"cache_max_entries" validate:"gte=0"`
}

//
// Render section
//

// Render bounds the property fetch of one page render.
type Render struct {
	PropertyLimit int           `koanf:"property_limit" validate:"gte=0,lte=200"`
	FetchTimeout  time.Duration `koanf:"fetch_timeout"  validate:"gte=0"`
}

//
// Provision section
//

// Provision sizes the background task queue.
type Provision struct {
	Workers         int           `koanf:"workers"          validate:"gte=0"`
	QueueSize       int           `koanf:"queue_size"       validate:"gte=0"`
	ItemConcurrency int           `koanf:"item_concurrency" validate:"gte=0"`
	TaskTimeout     time.Duration `koanf:"task_timeout"     validate:"gte=0"`
	TaskTTL         time.Duration `koanf:"task_ttl"         validate:"gte=0"`
	CatalogFile     string        `koanf:"catalog_file"`
}

//
// Assets section
//

// Assets points at the generation service and the bucket for its images.
// A blank Endpoint disables generation.
type Assets struct {
	Endpoint        string        `koanf:"endpoint"          validate:"omitempty,url"`
	APIKey          string        `koanf:"api_key"`
	Timeout         time.Duration `koanf:"timeout"           validate:"gte=0"`
	S3Bucket        string        `koanf:"s3_bucket"`
	S3Region        string        `koanf:"s3_region"`
	S3Endpoint      string        `koanf:"s3_endpoint"       validate:"omitempty,url"`
	S3AccessKey     string        `koanf:"s3_access_key"`
	S3SecretKey     string        `koanf:"s3_secret_key"`
	S3PublicBaseURL string        `koanf:"s3_public_base_url" validate:"omitempty,url"`
}

//
// Redis section
//

// Redis backs the shared task tracker.  A blank Addr keeps task status in
// process memory.
type Redis struct {
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
	DB   int    `koanf:"db"   validate:"gte=0"`
}

//
// Log section
//

// Log selects the level and the console tee.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // VITRINE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Sites     Sites     `koanf:"sites"`
	Render    Render    `koanf:"render"`
	Provision Provision `koanf:"provision"`
	Assets    Assets    `koanf:"assets"`
	Redis     Redis     `koanf:"redis"`
	Log       Log       `koanf:"log"`
	Paths     Paths     `koanf:"-"`
}
