// Package config loads the service configuration.
//
// Values are taken, from lowest to highest priority, from the built-in defaults,
// a JSON file named by the -c flag or the CONFIG variable, the environment
// (a .env file is loaded first when present) and the command-line flags.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all the settings of the bookmarks service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" validate:"omitempty,hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" validate:"omitempty,storagepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DatabaseDriver      string        `env:"DATABASE_DRIVER" validate:"oneof=postgres sqlite"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	JWTSecret           string        `env:"JWT_SECRET" validate:"required,base64"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" validate:"gt=0"`
	BcryptCost          int           `env:"BCRYPT_COST" validate:"min=4,max=31"`
	AuthRateLimit       int           `env:"AUTH_RATE_LIMIT" validate:"min=0"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	EnableHTTPS         bool          `env:"ENABLE_HTTPS"`
	TLSCertFile         string        `env:"TLS_CERT_FILE" validate:"required_if=EnableHTTPS true"`
	TLSKeyFile          string        `env:"TLS_KEY_FILE" validate:"required_if=EnableHTTPS true"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	ConfigFile          string        `env:"CONFIG"`
}

// fileConfig mirrors Config for the JSON file. Durations are written as Go duration strings ("15m").
type fileConfig struct {
	RunAddr             string `json:"server_address"`
	GRPCAddr            string `json:"grpc_address"`
	LogLevel            string `json:"log_level"`
	DBFileName          string `json:"file_storage_path"`
	DatabaseDSN         string `json:"database_dsn"`
	DatabaseDriver      string `json:"database_driver"`
	DBConnectionTimeout string `json:"db_connection_timeout"`
	JWTSecret           string `json:"jwt_secret"`
	TokenTTL            string `json:"token_ttl"`
	BcryptCost          int    `json:"bcrypt_cost"`
	AuthRateLimit       int    `json:"auth_rate_limit"`
	TrustedSubnet       string `json:"trusted_subnet"`
	EnableHTTPS         bool   `json:"enable_https"`
	TLSCertFile         string `json:"tls_cert_file"`
	TLSKeyFile          string `json:"tls_key_file"`
	ShutdownTimeout     string `json:"shutdown_timeout"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DatabaseDriver:      "postgres",
	DBConnectionTimeout: 10 * time.Second,
	TokenTTL:            15 * time.Minute,
	BcryptCost:          10,
	AuthRateLimit:       20,
	ShutdownTimeout:     10 * time.Second,
}

// InitOption configures how New collects the values.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips the command-line layer entirely.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs sets the command-line arguments to parse instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	var valuesFromFlags *Config
	var setFlags map[string]bool
	if !options.disableFlagsParsing {
		valuesFromFlags, setFlags, err = parseFlags(options.args)
		if err != nil {
			return nil, err
		}
	}

	var valuesFromEnv Config
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	configFile := valuesFromEnv.ConfigFile
	if setFlags["c"] {
		configFile = valuesFromFlags.ConfigFile
	}
	if configFile != "" {
		valuesFromFile, err := loadFile(configFile)
		if err != nil {
			return nil, err
		}
		merge(values, valuesFromFile)
		values.ConfigFile = configFile
	}

	merge(values, &valuesFromEnv)

	if valuesFromFlags != nil {
		mergeFlags(values, valuesFromFlags, setFlags)
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

func parseFlags(args []string) (*Config, map[string]bool, error) {
	values := &Config{}
	flags := flag.NewFlagSet("bookmarks", flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", "", "address and port to run the HTTP server")
	flags.StringVar(&values.GRPCAddr, "g", "", "address and port to run the gRPC server, empty disables it")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")
	flags.StringVar(&values.DBFileName, "f", "", "JSON file name with the database")
	flags.StringVar(&values.DatabaseDSN, "d", "", "a string with the database connection details")
	flags.StringVar(&values.DatabaseDriver, "driver", "", "SQL driver for the DSN: postgres or sqlite")
	flags.StringVar(&values.TrustedSubnet, "t", "", "trusted subnet in CIDR notation for /internal/stats")
	flags.BoolVar(&values.EnableHTTPS, "s", false, "serve HTTPS")
	flags.StringVar(&values.ConfigFile, "c", "", "JSON configuration file")
	flags.StringVar(&values.ConfigFile, "config", "", "JSON configuration file")

	if err := flags.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flags.Parse()` calling: %w", err)
	}

	setFlags := map[string]bool{}
	flags.Visit(func(f *flag.Flag) {
		name := f.Name
		if name == "config" {
			name = "c"
		}
		setFlags[name] = true
	})

	return values, setFlags, nil
}

func loadFile(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/loadFile(): error while `os.ReadFile()` calling: %w", err)
	}

	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/loadFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	result := &Config{
		RunAddr:        raw.RunAddr,
		GRPCAddr:       raw.GRPCAddr,
		LogLevel:       raw.LogLevel,
		DBFileName:     raw.DBFileName,
		DatabaseDSN:    raw.DatabaseDSN,
		DatabaseDriver: raw.DatabaseDriver,
		JWTSecret:      raw.JWTSecret,
		BcryptCost:     raw.BcryptCost,
		AuthRateLimit:  raw.AuthRateLimit,
		TrustedSubnet:  raw.TrustedSubnet,
		EnableHTTPS:    raw.EnableHTTPS,
		TLSCertFile:    raw.TLSCertFile,
		TLSKeyFile:     raw.TLSKeyFile,
	}

	durations := []struct {
		raw    string
		target *time.Duration
	}{
		{raw.DBConnectionTimeout, &result.DBConnectionTimeout},
		{raw.TokenTTL, &result.TokenTTL},
		{raw.ShutdownTimeout, &result.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/loadFile(): error while `time.ParseDuration()` calling: %w", err)
		}
		*d.target = parsed
	}

	return result, nil
}

// merge copies every non-zero field of src into dst.
func merge(dst, src *Config) {
	if src.RunAddr != "" {
		dst.RunAddr = src.RunAddr
	}
	if src.GRPCAddr != "" {
		dst.GRPCAddr = src.GRPCAddr
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.DBFileName != "" {
		dst.DBFileName = src.DBFileName
	}
	if src.DatabaseDSN != "" {
		dst.DatabaseDSN = src.DatabaseDSN
	}
	if src.DatabaseDriver != "" {
		dst.DatabaseDriver = src.DatabaseDriver
	}
	if src.DBConnectionTimeout != 0 {
		dst.DBConnectionTimeout = src.DBConnectionTimeout
	}
	if src.JWTSecret != "" {
		dst.JWTSecret = src.JWTSecret
	}
	if src.TokenTTL != 0 {
		dst.TokenTTL = src.TokenTTL
	}
	if src.BcryptCost != 0 {
		dst.BcryptCost = src.BcryptCost
	}
	if src.AuthRateLimit != 0 {
		dst.AuthRateLimit = src.AuthRateLimit
	}
	if src.TrustedSubnet != "" {
		dst.TrustedSubnet = src.TrustedSubnet
	}
	if src.EnableHTTPS {
		dst.EnableHTTPS = true
	}
	if src.TLSCertFile != "" {
		dst.TLSCertFile = src.TLSCertFile
	}
	if src.TLSKeyFile != "" {
		dst.TLSKeyFile = src.TLSKeyFile
	}
	if src.ShutdownTimeout != 0 {
		dst.ShutdownTimeout = src.ShutdownTimeout
	}
}

// mergeFlags copies only the flags that were given explicitly, so that "-s=false" can switch HTTPS off.
func mergeFlags(dst, src *Config, setFlags map[string]bool) {
	if setFlags["a"] {
		dst.RunAddr = src.RunAddr
	}
	if setFlags["g"] {
		dst.GRPCAddr = src.GRPCAddr
	}
	if setFlags["l"] {
		dst.LogLevel = src.LogLevel
	}
	if setFlags["f"] {
		dst.DBFileName = src.DBFileName
	}
	if setFlags["d"] {
		dst.DatabaseDSN = src.DatabaseDSN
	}
	if setFlags["driver"] {
		dst.DatabaseDriver = src.DatabaseDriver
	}
	if setFlags["t"] {
		dst.TrustedSubnet = src.TrustedSubnet
	}
	if setFlags["s"] {
		dst.EnableHTTPS = src.EnableHTTPS
	}
}

func applyDefaults(dst *Config, defaults Config) {
	*dst = defaults
}

func validateStoragePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("storagepath", validateStoragePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
