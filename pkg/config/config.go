package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Checkout     CheckoutConfig
	Shipping     ShippingConfig
	Square       SquareConfig
	Mpesa        MpesaConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TIFFAH_APP_ENV" required:"true"`
	Port         string `envconfig:"TIFFAH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TIFFAH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TIFFAH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TIFFAH_DB_DSN"`
	Driver string `envconfig:"TIFFAH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TIFFAH_DB_HOST"`
	Port     int    `envconfig:"TIFFAH_DB_PORT" default:"5432"`
	User     string `envconfig:"TIFFAH_DB_USER"`
	Password string `envconfig:"TIFFAH_DB_PASSWORD"`
	Name     string `envconfig:"TIFFAH_DB_NAME"`
	SSLMode  string `envconfig:"TIFFAH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TIFFAH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TIFFAH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TIFFAH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TIFFAH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TIFFAH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TIFFAH_REDIS_ADDR"`
	Password     string        `envconfig:"TIFFAH_REDIS_PASSWORD"`
	DB           int           `envconfig:"TIFFAH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TIFFAH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TIFFAH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TIFFAH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TIFFAH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TIFFAH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CheckoutConfig carries the knobs for the checkout orchestrator. VAT is a
// percentage of the subtotal; polling bounds the asynchronous payment
// confirmation loop.
type CheckoutConfig struct {
	VATRatePercent   int           `envconfig:"TIFFAH_CHECKOUT_VAT_RATE_PERCENT" default:"16"`
	PollMaxAttempts  int           `envconfig:"TIFFAH_CHECKOUT_POLL_MAX_ATTEMPTS" default:"3"`
	PollDelay        time.Duration `envconfig:"TIFFAH_CHECKOUT_POLL_DELAY" default:"5s"`
	OrderNumberRetry int           `envconfig:"TIFFAH_CHECKOUT_ORDER_NUMBER_RETRY" default:"5"`
}

// ShippingConfig holds the flat delivery fee per shipping method, in KES.
type ShippingConfig struct {
	StandardFee int `envconfig:"TIFFAH_SHIPPING_STANDARD_FEE" default:"200"`
	ExpressFee  int `envconfig:"TIFFAH_SHIPPING_EXPRESS_FEE" default:"500"`
	PickupFee   int `envconfig:"TIFFAH_SHIPPING_PICKUP_FEE" default:"0"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"TIFFAH_SQUARE_ACCESS_TOKEN"`
	LocationID  string `envconfig:"TIFFAH_SQUARE_LOCATION_ID"`
	Env         string `envconfig:"TIFFAH_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type MpesaConfig struct {
	BaseURL        string        `envconfig:"TIFFAH_MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey    string        `envconfig:"TIFFAH_MPESA_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"TIFFAH_MPESA_CONSUMER_SECRET"`
	ShortCode      string        `envconfig:"TIFFAH_MPESA_SHORT_CODE"`
	Passkey        string        `envconfig:"TIFFAH_MPESA_PASSKEY"`
	CallbackURL    string        `envconfig:"TIFFAH_MPESA_CALLBACK_URL"`
	HTTPTimeout    time.Duration `envconfig:"TIFFAH_MPESA_HTTP_TIMEOUT" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TIFFAH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TIFFAH_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
