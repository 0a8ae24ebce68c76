package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/itszoriel/munlink-sub001/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"munlink"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type NotificationsOptions struct {
	WorkerEnabled     bool          `env:"NOTIFY_WORKER_ENABLED" envDefault:"true"`
	PollInterval      time.Duration `env:"NOTIFY_POLL_INTERVAL" envDefault:"30s"`
	BatchSize         int           `env:"NOTIFY_BATCH_SIZE" envDefault:"50"`
	InlineBatchSize   int           `env:"NOTIFY_INLINE_BATCH_SIZE" envDefault:"10"`
	Lease             time.Duration `env:"NOTIFY_LEASE" envDefault:"5m"`
	MaxAttempts       int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"5"`
	SMSChunkSize      int           `env:"NOTIFY_SMS_CHUNK_SIZE" envDefault:"1000"`
	LastErrorMaxLen   int           `env:"NOTIFY_LAST_ERROR_MAX_BYTES" envDefault:"512"`
	ObserveDepthEvery time.Duration `env:"NOTIFY_OBSERVE_DEPTH_EVERY" envDefault:"30s"`
}

type SMTPOptions struct {
	Host     string `env:"SMTP_HOST" envDefault:"localhost"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@munlink.example"`
}

type EskizOptions struct {
	Email    string `env:"ESKIZ_EMAIL"`
	Password string `env:"ESKIZ_PASSWORD"`
	From     string `env:"ESKIZ_FROM" envDefault:"4546"`
	BaseURL  string `env:"ESKIZ_BASE_URL" envDefault:"https://notify.eskiz.uz/api"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"munlink"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type Configuration struct {
	Database      DatabaseOptions
	Notifications NotificationsOptions
	SMTP          SMTPOptions
	Eskiz         EskizOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	Domain           string `env:"DOMAIN" envDefault:"localhost"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"100"`
	RequestIDHeader  string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader     string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production {
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.validateNotifications(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	return nil
}

func (c *Configuration) validateNotifications() error {
	n := c.Notifications
	if n.BatchSize <= 0 {
		return fmt.Errorf("NOTIFY_BATCH_SIZE must be positive, got %d", n.BatchSize)
	}
	if n.MaxAttempts <= 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be positive, got %d", n.MaxAttempts)
	}
	if n.Lease < time.Second {
		return fmt.Errorf("NOTIFY_LEASE too short: %s", n.Lease)
	}
	if n.SMSChunkSize <= 0 || n.SMSChunkSize > 1000 {
		return fmt.Errorf("NOTIFY_SMS_CHUNK_SIZE must be in (0, 1000], got %d", n.SMSChunkSize)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
