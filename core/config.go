package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName   string
		Build     string
		Env       string // DEV (local; default), TEST, QA, PROD
		Debug     bool
		TestMode  bool
		SecretKey string
		Locale    string
		WorkDir   string

		RollbarToken string

		Server    ServerConfig
		Database  DatabaseConfig
		Email     EmailConfig
		Zoom      ZoomConfig
		Daily     DailyConfig
		Reconcile ReconcileConfig
	}

	ServerConfig struct {
		Host               string
		Port               int
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		CORSOrigins        []string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	EmailConfig struct {
		DefaultFrom    mail.Address
		SendgridApiKey string
	}

	ZoomConfig struct {
		AccountID    string
		ClientID     string
		ClientSecret string
		APIBaseURL   string
		TokenURL     string
	}

	DailyConfig struct {
		APIKey     string
		APIBaseURL string
		RoomExpiry time.Duration // added to the lesson's end
	}

	ReconcileConfig struct {
		Interval   time.Duration // 0 disables the background loop
		PendingAge time.Duration
	}
)

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// NewConfig loads the configuration from the environment.
// Variables are prefixed with the current ENV, e.g. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		Locale:       v.GetString("locale"),
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Port:               v.GetInt("server.port"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			CORSOrigins:        v.GetStringSlice("server.corsOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Email: EmailConfig{
			DefaultFrom:    mail.Address{Name: v.GetString("appName"), Address: v.GetString("email.defaultFrom")},
			SendgridApiKey: v.GetString("email.sendgridApiKey"),
		},
		Zoom: ZoomConfig{
			AccountID:    v.GetString("zoom.accountID"),
			ClientID:     v.GetString("zoom.clientID"),
			ClientSecret: v.GetString("zoom.clientSecret"),
			APIBaseURL:   v.GetString("zoom.apiBaseURL"),
			TokenURL:     v.GetString("zoom.tokenURL"),
		},
		Daily: DailyConfig{
			APIKey:     v.GetString("daily.apiKey"),
			APIBaseURL: v.GetString("daily.apiBaseURL"),
			RoomExpiry: v.GetDuration("daily.roomExpiry"),
		},
		Reconcile: ReconcileConfig{
			Interval:   v.GetDuration("reconcile.interval"),
			PendingAge: v.GetDuration("reconcile.pendingAge"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Ratiba")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "vbn2-q9x)fmd$+11=kt&ehzp7(a!r)#*u8(#wl4k^$hgbt3oca")
	v.SetDefault("locale", "en")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.corsOrigins", []string{"*"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ratiba")
	v.SetDefault("database.user", "ratiba")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("email.defaultFrom", "noreply@localhost")
	v.SetDefault("email.sendgridApiKey", "")

	v.SetDefault("zoom.accountID", "")
	v.SetDefault("zoom.clientID", "")
	v.SetDefault("zoom.clientSecret", "")
	v.SetDefault("zoom.apiBaseURL", "https://api.zoom.us/v2")
	v.SetDefault("zoom.tokenURL", "https://zoom.us/oauth/token")

	v.SetDefault("daily.apiKey", "")
	v.SetDefault("daily.apiBaseURL", "https://api.daily.co/v1")
	v.SetDefault("daily.roomExpiry", 24*time.Hour)

	v.SetDefault("reconcile.interval", time.Duration(0))
	v.SetDefault("reconcile.pendingAge", 30*time.Minute)
}
