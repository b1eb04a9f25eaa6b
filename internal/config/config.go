package config

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	POS       POSConfig
	Printer   PrinterConfig
	Fiscal    FiscalConfig
	TEF       TEFConfig
	Cash      CashConfig
	Store     StoreConfig
}

type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Debug    bool
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
	SeedDemo bool
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	HeldCartTTL time.Duration
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// POSConfig holds the checkout rules
type POSConfig struct {
	TaxRate            decimal.Decimal
	InstallmentMinimum decimal.Decimal
	MaxInstallments    int
	MaxQuantity        int
	DefaultDocType     string
}

type PrinterConfig struct {
	Type      string // usb, network or none
	USBPath   string
	Address   string
	Width     int
	Timeout   time.Duration
	Device    string
	ExtraList []string // additional devices as name=type:target
}

type FiscalConfig struct {
	Type    string // http or sandbox
	BaseURL string
	Token   string
	Timeout time.Duration
}

type TEFConfig struct {
	Type    string // http or sandbox
	BaseURL string
	Timeout time.Duration
}

type CashConfig struct {
	SupervisorPINHash string
}

// StoreConfig is printed on receipt headers
type StoreConfig struct {
	Name    string
	Address string
	Phone   string
	TaxID   string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		slog.Warn(".env file not found, using environment variables", "error", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "pdv-engine")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "pdv")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "America/Sao_Paulo")
	viper.SetDefault("DB_SEED_DEMO", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_HELD_CART_TTL_HOURS", 168)
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 12)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 300)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("POS_TAX_RATE", "0.09")
	viper.SetDefault("POS_INSTALLMENT_MIN", "10.00")
	viper.SetDefault("POS_MAX_INSTALLMENTS", 12)
	viper.SetDefault("POS_MAX_QUANTITY", 999)
	viper.SetDefault("POS_DEFAULT_DOC_TYPE", "nfce")
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_WIDTH", 48)
	viper.SetDefault("PRINTER_TIMEOUT_SECONDS", 10)
	viper.SetDefault("PRINTER_DEVICE", "default")
	viper.SetDefault("FISCAL_TYPE", "sandbox")
	viper.SetDefault("FISCAL_TIMEOUT_SECONDS", 30)
	viper.SetDefault("TEF_TYPE", "sandbox")
	viper.SetDefault("TEF_TIMEOUT_SECONDS", 90)
	viper.SetDefault("STORE_NAME", "PDV")

	return &Config{
		App: AppConfig{
			Name:     viper.GetString("APP_NAME"),
			Env:      viper.GetString("APP_ENV"),
			Port:     viper.GetString("APP_PORT"),
			Debug:    viper.GetBool("APP_DEBUG"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
			SeedDemo: viper.GetBool("DB_SEED_DEMO"),
		},
		Redis: RedisConfig{
			Addr:        viper.GetString("REDIS_ADDR"),
			Password:    viper.GetString("REDIS_PASSWORD"),
			DB:          viper.GetInt("REDIS_DB"),
			HeldCartTTL: time.Duration(viper.GetInt("REDIS_HELD_CART_TTL_HOURS")) * time.Hour,
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		POS: POSConfig{
			TaxRate:            decimalOr(viper.GetString("POS_TAX_RATE"), "0.09"),
			InstallmentMinimum: decimalOr(viper.GetString("POS_INSTALLMENT_MIN"), "10.00"),
			MaxInstallments:    viper.GetInt("POS_MAX_INSTALLMENTS"),
			MaxQuantity:        viper.GetInt("POS_MAX_QUANTITY"),
			DefaultDocType:     viper.GetString("POS_DEFAULT_DOC_TYPE"),
		},
		Printer: PrinterConfig{
			Type:      viper.GetString("PRINTER_TYPE"),
			USBPath:   viper.GetString("PRINTER_USB_PATH"),
			Address:   viper.GetString("PRINTER_ADDRESS"),
			Width:     viper.GetInt("PRINTER_WIDTH"),
			Timeout:   time.Duration(viper.GetInt("PRINTER_TIMEOUT_SECONDS")) * time.Second,
			Device:    viper.GetString("PRINTER_DEVICE"),
			ExtraList: viper.GetStringSlice("PRINTER_EXTRA_DEVICES"),
		},
		Fiscal: FiscalConfig{
			Type:    viper.GetString("FISCAL_TYPE"),
			BaseURL: viper.GetString("FISCAL_BASE_URL"),
			Token:   viper.GetString("FISCAL_TOKEN"),
			Timeout: time.Duration(viper.GetInt("FISCAL_TIMEOUT_SECONDS")) * time.Second,
		},
		TEF: TEFConfig{
			Type:    viper.GetString("TEF_TYPE"),
			BaseURL: viper.GetString("TEF_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("TEF_TIMEOUT_SECONDS")) * time.Second,
		},
		Cash: CashConfig{
			SupervisorPINHash: viper.GetString("CASH_SUPERVISOR_PIN_HASH"),
		},
		Store: StoreConfig{
			Name:    viper.GetString("STORE_NAME"),
			Address: viper.GetString("STORE_ADDRESS"),
			Phone:   viper.GetString("STORE_PHONE"),
			TaxID:   viper.GetString("STORE_CNPJ"),
		},
	}
}

func decimalOr(s, fallback string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		slog.Warn("invalid decimal setting, using default", "value", s, "default", fallback)
		return decimal.RequireFromString(fallback)
	}
	return d
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
