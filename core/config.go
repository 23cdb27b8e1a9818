package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// District name normalization policies applied by the district rollup.
const (
	NormalizeNone = "none"
	NormalizeTrim = "trim"
	NormalizeFold = "fold"
)

type (
	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | bolt | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		BoltPath      string
	}

	RecognitionConfig struct {
		URL     string
		Timeout time.Duration
	}

	ReportingConfig struct {
		DistrictNormalization string
		MaxWindowDays         int
	}

	NotificationConfig struct {
		AbsenceEmails bool
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address
		Location         *time.Location
		Server           ServerConfig
		Database         DatabaseConfig
		Recognition      RecognitionConfig
		Reporting        ReportingConfig
		Notifications    NotificationConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the application config from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased ENV value, e.g. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Smart Attendance")
	v.SetDefault("secretKey", "r8$k1-attendance)qw3+9x&zz!t5v(b_mn7#u0@pl2*dd")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("timeZone", "Local")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "attendance")
	v.SetDefault("database.user", "attendance")
	v.SetDefault("database.password", "attendance")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.boltPath", filepath.Join("data", "attendance.db"))
	v.SetDefault("recognition.url", "http://127.0.0.1:5000")
	v.SetDefault("recognition.timeout", 10*time.Second)
	v.SetDefault("reporting.districtNormalization", NormalizeNone)
	v.SetDefault("reporting.maxWindowDays", 366)
	v.SetDefault("notifications.absenceEmails", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("timeZone"))
	if err != nil {
		log.Fatalf("config.LoadLocation(%s): %v", v.GetString("timeZone"), err)
	}

	norm := strings.ToLower(v.GetString("reporting.districtNormalization"))
	switch norm {
	case NormalizeNone, NormalizeTrim, NormalizeFold:
	default:
		log.Fatalf("config: unknown district normalization %q", norm)
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		Location:         loc,
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			BoltPath:      v.GetString("database.boltPath"),
		},
		Recognition: RecognitionConfig{
			URL:     strings.TrimRight(v.GetString("recognition.url"), "/"),
			Timeout: v.GetDuration("recognition.timeout"),
		},
		Reporting: ReportingConfig{
			DistrictNormalization: norm,
			MaxWindowDays:         v.GetInt("reporting.maxWindowDays"),
		},
		Notifications: NotificationConfig{
			AbsenceEmails: v.GetBool("notifications.absenceEmails"),
		},
	}
}
