package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// secret keys, looked up in the environment first and then in the secrets file
const (
	SecretSenderEmail    = "sender_email"
	SecretSenderPassword = "sender_password"
	SecretSendgridAPIKey = "sendgrid_api_key"
)

// email backends
const (
	EmailBackendConsole  = "console"
	EmailBackendSMTP     = "smtp"
	EmailBackendSendgrid = "sendgrid"
)

type (
	ServerConfig struct {
		Address            string
		DebugAddress       string
		ShutdownTimeout    time.Duration
		SessionTokenExpiry time.Duration
		BodyLimit          string // eg: 20M
		DisableReqLogs     bool
	}

	EmailConfig struct {
		Backend       string
		SenderName    string
		InternalEmail string
		SMTPHost      string
		SMTPPort      int
	}

	ResourcesConfig struct {
		Dir string // empty: use the embedded resources
	}

	// PhoneConfig toggles the optional phone checks. Both are off by default.
	PhoneConfig struct {
		CheckPrefix bool
		CheckLength bool
		MinDigits   int
		MaxDigits   int
	}

	WizardConfig struct {
		MinimumAge          int
		SignatureBackground string // hex colour of the drawing surface
	}

	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		SecretsFile  string
		RollbarToken string

		Server    ServerConfig
		Email     EmailConfig
		Resources ResourcesConfig
		Phone     PhoneConfig
		Wizard    WizardConfig

		v       *viper.Viper
		secrets *viper.Viper
	}
)

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values come from prefixed environment variables (eg: DEV_EMAIL_BACKEND) and
// from config/.env.<env> when that file exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "AspireCraft")
	v.SetDefault("secretKey", "d9f1-w4e)enb$+57=rz&uoxh2(k!x)#*c2(#yg4h^$bz9m2ury")
	v.SetDefault("secretsFile", filepath.Join("config", "secrets.toml"))
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.sessionTokenExpiry", 24*time.Hour)
	v.SetDefault("server.bodyLimit", "20M")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("email.backend", EmailBackendConsole)
	v.SetDefault("email.senderName", "AspireCraft")
	v.SetDefault("email.internalEmail", "")
	v.SetDefault("email.smtpHost", "smtp.gmail.com")
	v.SetDefault("email.smtpPort", 587)
	v.SetDefault("resources.dir", "")
	v.SetDefault("phone.checkPrefix", false)
	v.SetDefault("phone.checkLength", false)
	v.SetDefault("phone.minDigits", 10)
	v.SetDefault("phone.maxDigits", 15)
	v.SetDefault("wizard.minimumAge", 14)
	v.SetDefault("wizard.signatureBackground", "#FFFFFF")

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
			panic(errors.Wrapf(err, "loading %s", dotEnvPath))
		}
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		SecretsFile:  v.GetString("secretsFile"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			DebugAddress:       v.GetString("server.debugAddress"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			SessionTokenExpiry: v.GetDuration("server.sessionTokenExpiry"),
			BodyLimit:          v.GetString("server.bodyLimit"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
		},
		Email: EmailConfig{
			Backend:       strings.ToLower(v.GetString("email.backend")),
			SenderName:    v.GetString("email.senderName"),
			InternalEmail: v.GetString("email.internalEmail"),
			SMTPHost:      v.GetString("email.smtpHost"),
			SMTPPort:      v.GetInt("email.smtpPort"),
		},
		Resources: ResourcesConfig{
			Dir: v.GetString("resources.dir"),
		},
		Phone: PhoneConfig{
			CheckPrefix: v.GetBool("phone.checkPrefix"),
			CheckLength: v.GetBool("phone.checkLength"),
			MinDigits:   v.GetInt("phone.minDigits"),
			MaxDigits:   v.GetInt("phone.maxDigits"),
		},
		Wizard: WizardConfig{
			MinimumAge:          v.GetInt("wizard.minimumAge"),
			SignatureBackground: v.GetString("wizard.signatureBackground"),
		},
		v: v,
	}
	conf.secrets = loadSecrets(conf.SecretsFile)
	return conf
}

// loadSecrets reads the fallback secret store. A missing or unreadable file yields an empty store.
func loadSecrets(path string) *viper.Viper {
	s := viper.New()
	if path == "" {
		return s
	}
	if _, err := os.Stat(path); err != nil {
		return s
	}
	s.SetConfigFile(path)
	s.SetConfigType("toml")
	if err := s.ReadInConfig(); err != nil {
		return viper.New()
	}
	return s
}

// Secret returns the named credential from the environment (prefixed or not), falling back to the secrets file.
func (c *Config) Secret(key string) (string, error) {
	if c.v != nil {
		if val := strings.TrimSpace(c.v.GetString(key)); val != "" {
			return val, nil
		}
	}
	if val := strings.TrimSpace(os.Getenv(strings.ToUpper(key))); val != "" {
		return val, nil
	}
	if c.secrets != nil {
		if val := strings.TrimSpace(c.secrets.GetString(key)); val != "" {
			return val, nil
		}
	}
	return "", NewConfigurationError(key)
}

// SetSecret overrides a credential in the fallback store.
func (c *Config) SetSecret(key, value string) {
	if c.secrets == nil {
		c.secrets = viper.New()
	}
	c.secrets.Set(key, value)
}

// InternalRecipient is where submissions are sent. It defaults to the sender address.
func (c *Config) InternalRecipient() (string, error) {
	if c.Email.InternalEmail != "" {
		return c.Email.InternalEmail, nil
	}
	return c.Secret(SecretSenderEmail)
}
