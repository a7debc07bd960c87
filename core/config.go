package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
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

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
	}

	IdentityConfig struct {
		Provider        string // firebase | jwt
		ProjectID       string
		CredentialsFile string
		Issuer          string
	}

	KafkaConfig struct {
		Brokers     []string
		TopicPrefix string
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
		StatsTTL time.Duration
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string

		Database DatabaseConfig
		Server   ServerConfig
		Identity IdentityConfig
		Kafka    KafkaConfig
		Redis    RedisConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dbc.Host, dbc.Port)
}

// NewConfig loads the app configuration from the environment.
// Environment variables are prefixed with the current env, eg: DEV_DATABASE_NAME.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	loadDotEnv(env)

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Examhall")
	v.SetDefault("secretKey", "r8v#wq2!kz-0$m3l9^h@x7n&c5(p1e)t4u6y+b_j=dfg")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "examhall")
	v.SetDefault("database.user", "examhall")
	v.SetDefault("database.password", "examhall")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTls", env == "DEV" || env == "TEST")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)

	v.SetDefault("identity.provider", "jwt")
	v.SetDefault("identity.projectId", "")
	v.SetDefault("identity.credentialsFile", "")
	v.SetDefault("identity.issuer", "examhall")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topicPrefix", "examhall.")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.statsTtl", time.Minute)

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseUrl"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTls"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
		},
		Identity: IdentityConfig{
			Provider:        v.GetString("identity.provider"),
			ProjectID:       v.GetString("identity.projectId"),
			CredentialsFile: v.GetString("identity.credentialsFile"),
			Issuer:          v.GetString("identity.issuer"),
		},
		Kafka: KafkaConfig{
			Brokers:     v.GetStringSlice("kafka.brokers"),
			TopicPrefix: v.GetString("kafka.topicPrefix"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			StatsTTL: v.GetDuration("redis.statsTtl"),
		},
	}
}

// loadDotEnv loads config/.env.<env> if it exists (ignored if it does not)
func loadDotEnv(env string) {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd: %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
}
