package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Drivers de persistencia soportados.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Store     StoreConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Stripe    StripeConfig
	SendGrid  SendGridConfig
	Twilio    TwilioConfig
	Quota     QuotaConfig
	RateLimit RateLimitConfig
	Gateway   GatewayConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env       string // development, staging, production
	Name      string
	LogLevel  string
	ClientURL string // frontend: origen CORS y URLs de retorno del checkout
}

// IsProduction indica si se deben ocultar detalles internos en las respuestas.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// StoreConfig elige el motor de persistencia.
type StoreConfig struct {
	Driver string // postgres | mongo | memory
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	// ForceIPv4 resuelve el host a IPv4 antes de conectar (contenedores sin IPv6).
	ForceIPv4 bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// MongoConfig configuración del document store alternativo.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig configuración del registro de eventos de webhook ya procesados.
// Addr vacío = registro en memoria del proceso.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StripeConfig credenciales de la pasarela de pago.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	ProPriceID    string
}

// SendGridConfig envío de facturas por email.
type SendGridConfig struct {
	APIKey   string
	From     string
	FromName string
}

// TwilioConfig recordatorios por SMS.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// QuotaConfig límites del plan gratuito.
type QuotaConfig struct {
	FreeDailyInvoices int
}

// RateLimitConfig límite de peticiones por IP sobre /api.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// GatewayConfig tiempo máximo de espera de las llamadas a proveedores externos.
type GatewayConfig struct {
	Timeout time.Duration
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, STRIPE_SECRET_KEY, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:       getString(v, "APP_ENV", "development"),
			Name:      getString(v, "APP_NAME", "invoicely-api"),
			LogLevel:  getString(v, "LOG_LEVEL", "info"),
			ClientURL: getString(v, "CLIENT_URL", "http://localhost:5173"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getString(v, "STORE_DRIVER", StoreDriverPostgres)),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "invoicely"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),

			MaxConns:        getInt(v, "DB_MAX_CONNS", 10),
			MinConns:        getInt(v, "DB_MIN_CONNS", 1),
			MaxConnLifetime: getDuration(v, "DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getDuration(v, "DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			ForceIPv4:       v.GetBool("DB_FORCE_IPV4"),
		},
		Mongo: MongoConfig{
			URI:      getString(v, "MONGODB_URI", "mongodb://localhost:27017"),
			Database: getString(v, "MONGODB_DATABASE", "invoicely"),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60*24*5),
			Issuer:     getString(v, "JWT_ISSUER", "invoicely-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 5000),
		},
		Stripe: StripeConfig{
			SecretKey:     getString(v, "STRIPE_SECRET_KEY", ""),
			WebhookSecret: getString(v, "STRIPE_WEBHOOK_SECRET", ""),
			ProPriceID:    getString(v, "STRIPE_PRO_PRICE_ID", ""),
		},
		SendGrid: SendGridConfig{
			APIKey:   getString(v, "SENDGRID_API_KEY", ""),
			From:     getString(v, "EMAIL_FROM", "invoices@example.com"),
			FromName: getString(v, "EMAIL_FROM_NAME", "My Freelance Business"),
		},
		Twilio: TwilioConfig{
			AccountSID: getString(v, "TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getString(v, "TWILIO_AUTH_TOKEN", ""),
			FromNumber: getString(v, "TWILIO_PHONE_NUMBER", ""),
		},
		Quota: QuotaConfig{
			FreeDailyInvoices: getInt(v, "FREE_DAILY_INVOICE_LIMIT", 10),
		},
		RateLimit: RateLimitConfig{
			Requests: getInt(v, "RATE_LIMIT_REQUESTS", 100),
			Window:   getDuration(v, "RATE_LIMIT_WINDOW", 15*time.Minute),
		},
		Gateway: GatewayConfig{
			Timeout: getDuration(v, "GATEWAY_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rechaza combinaciones que no deben llegar a producción.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		return fmt.Errorf("config: STORE_DRIVER desconocido %q", c.Store.Driver)
	}
	if c.DB.MaxConns < 0 || c.DB.MinConns < 0 || (c.DB.MaxConns > 0 && c.DB.MinConns > c.DB.MaxConns) {
		return errors.New("config: DB_MIN_CONNS no puede superar DB_MAX_CONNS")
	}
	if c.Quota.FreeDailyInvoices <= 0 {
		return errors.New("config: FREE_DAILY_INVOICE_LIMIT debe ser mayor que cero")
	}
	if !c.App.IsProduction() {
		return nil
	}
	if c.JWT.Secret == "" {
		return errors.New("config: JWT_SECRET es obligatorio en producción")
	}
	if c.Stripe.WebhookSecret == "" {
		return errors.New("config: STRIPE_WEBHOOK_SECRET es obligatorio en producción")
	}
	if c.Store.Driver == StoreDriverMemory {
		return errors.New("config: STORE_DRIVER=memory no está permitido en producción")
	}
	// Sin credenciales los envíos solo se registrarían en el log y la factura quedaría Sent.
	if c.SendGrid.APIKey == "" {
		return errors.New("config: SENDGRID_API_KEY es obligatorio en producción")
	}
	if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.FromNumber == "" {
		return errors.New("config: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN y TWILIO_PHONE_NUMBER son obligatorios en producción")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

// getDuration acepta "15m", "30s" o un entero en segundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
