package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/pkg/config"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Notifier drivers.
const (
	NotifierKafka = "kafka"
	NotifierGmail = "gmail"
	NotifierLog   = "log"
)

// BookingConfig holds the booking lifecycle settings.
type BookingConfig struct {
	Location          *time.Location
	Currency          string
	Holidays          []string
	ReleaseOnCancel   bool
	SideEffectTimeout time.Duration
}

// SweeperConfig holds the expiration sweeper settings.
type SweeperConfig struct {
	TTL              time.Duration
	Interval         time.Duration
	IncludeConfirmed bool
	PurgeAfter       time.Duration
	BatchSize        int
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	StoreDriver    string
	NotifierDriver string
	DBConfig       config.DatabaseConfig
	JWTConfig      config.JWTConfig
	KafkaConfig    config.KafkaConfig
	MongoConfig    config.MongoConfig
	GmailConfig    config.GmailConfig
	Booking        BookingConfig
	Sweeper        SweeperConfig
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING")
	if err != nil {
		return nil, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*ServiceConfig, error) {
	v.SetDefault("DB_NAME", "booking")
	v.SetDefault("STORE_DRIVER", StorePostgres)
	v.SetDefault("NOTIFIER_DRIVER", NotifierKafka)
	v.SetDefault("TIMEZONE", "Asia/Ho_Chi_Minh")
	v.SetDefault("CURRENCY", "VND")
	v.SetDefault("HOLIDAYS", strings.Join(bookingDomain.DefaultHolidays, ","))
	v.SetDefault("RELEASE_ON_CANCEL", true)
	v.SetDefault("SIDE_EFFECT_TIMEOUT", "30s")
	v.SetDefault("TTL", "24h")
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("SWEEP_INCLUDE_CONFIRMED", false)
	v.SetDefault("PURGE_AFTER", "0s")
	v.SetDefault("SWEEP_BATCH_SIZE", 500)

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TIMEZONE: %w", err)
	}

	cfg := &ServiceConfig{
		Port:           config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:         config.GetAppEnv(v),
		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		NotifierDriver: strings.ToLower(v.GetString("NOTIFIER_DRIVER")),
		DBConfig:       config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:      config.LoadJWTConfig(v),
		KafkaConfig:    config.LoadKafkaConfig(v),
		MongoConfig:    config.LoadMongoConfig(v),
		GmailConfig:    config.LoadGmailConfig(v),
		Booking: BookingConfig{
			Location:          loc,
			Currency:          strings.ToUpper(v.GetString("CURRENCY")),
			Holidays:          splitDates(v.GetString("HOLIDAYS")),
			ReleaseOnCancel:   v.GetBool("RELEASE_ON_CANCEL"),
			SideEffectTimeout: v.GetDuration("SIDE_EFFECT_TIMEOUT"),
		},
		Sweeper: SweeperConfig{
			TTL:              v.GetDuration("TTL"),
			Interval:         v.GetDuration("SWEEP_INTERVAL"),
			IncludeConfirmed: v.GetBool("SWEEP_INCLUDE_CONFIRMED"),
			PurgeAfter:       v.GetDuration("PURGE_AFTER"),
			BatchSize:        v.GetInt("SWEEP_BATCH_SIZE"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	switch c.StoreDriver {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown BOOKING_STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.NotifierDriver {
	case NotifierKafka, NotifierGmail, NotifierLog:
	default:
		return fmt.Errorf("unknown BOOKING_NOTIFIER_DRIVER %q", c.NotifierDriver)
	}
	if c.Sweeper.TTL <= 0 {
		return fmt.Errorf("BOOKING_TTL must be positive")
	}
	if len(c.Booking.Currency) != 3 {
		return fmt.Errorf("BOOKING_CURRENCY must be a 3-letter code")
	}
	if _, err := bookingDomain.ParseHolidayCalendar(c.Booking.Location, c.Booking.Holidays); err != nil {
		return fmt.Errorf("invalid BOOKING_HOLIDAYS: %w", err)
	}
	return nil
}

func splitDates(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
