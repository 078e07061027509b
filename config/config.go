package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting of the service, read from environment variables
type Config struct {
	Env  string
	Port string

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis sessions
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	SessionTTL          time.Duration
	SessionCookieSecure bool

	// Document rendering
	TemplatesDir         string
	FontsDir             string
	MediaRoot            string
	ImageCacheDir        string // empty disables the optimized image cache
	ChromePath           string
	PDFResolveLocalFiles bool
	PDFTimeout           time.Duration
	DocumentLocation     *time.Location

	// Optional Google Drive archive of generated documents
	DriveCredentialsPath string
	DriveFolderID        string
	// Drive folder holding model images for the sync-media command
	MediaDriveFolderID string

	Offer OfferTexts
}

// OfferTexts are the static texts printed on every PDF offer
type OfferTexts struct {
	Title            string
	DeliveryTerms    string
	WarrantyTerms    string
	CompanyName      string
	ManagerName      string
	ManagerContact   string
	ManagerEmail     string
	ManagerSignature string
	AttorneyDetails  string
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DatabaseDSN returns DATABASE_URL or a DSN built from the DB_* variables
func (c *Config) DatabaseDSN() (string, error) {
	if c.DatabaseURL != "" {
		return c.DatabaseURL, nil
	}
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return "", fmt.Errorf("database connection variables not set. Set DATABASE_URL or DB_HOST, DB_USER, DB_NAME")
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode), nil
}

// MigrationURL returns the database URL in the form golang-migrate's pgx5 driver expects
func (c *Config) MigrationURL() (string, error) {
	if c.DatabaseURL != "" {
		for _, scheme := range []string{"postgresql://", "postgres://"} {
			if strings.HasPrefix(c.DatabaseURL, scheme) {
				return "pgx5://" + strings.TrimPrefix(c.DatabaseURL, scheme), nil
			}
		}
		return "", fmt.Errorf("DATABASE_URL must be a postgres:// URL to run migrations")
	}
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return "", fmt.Errorf("database connection variables not set. Set DATABASE_URL or DB_HOST, DB_USER, DB_NAME")
	}
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String(), nil
}

// ArchiveEnabled reports whether generated documents should be uploaded to Drive
func (c *Config) ArchiveEnabled() bool {
	return c.DriveCredentialsPath != "" && c.DriveFolderID != ""
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{
		Env:                  getEnv("ENV", "development"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DBHost:               os.Getenv("DB_HOST"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               os.Getenv("DB_USER"),
		DBPassword:           os.Getenv("DB_PASSWORD"),
		DBName:               os.Getenv("DB_NAME"),
		DBSSLMode:            getEnv("DB_SSLMODE", "disable"),
		RedisAddr:            strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		TemplatesDir:         getEnv("TEMPLATES_DIR", "templates"),
		FontsDir:             getEnv("FONTS_DIR", "static/fonts"),
		MediaRoot:            getEnv("MEDIA_ROOT", "media"),
		ImageCacheDir:        os.Getenv("IMAGE_CACHE_DIR"),
		ChromePath:           os.Getenv("CHROME_PATH"),
		DriveCredentialsPath: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		DriveFolderID:        os.Getenv("DOCUMENTS_DRIVE_FOLDER_ID"),
		MediaDriveFolderID:   os.Getenv("MEDIA_DRIVE_FOLDER_ID"),
		Offer: OfferTexts{
			Title:            getEnv("OFFER_TITLE", "Коммерческое предложение"),
			DeliveryTerms:    getEnv("OFFER_DELIVERY_TERMS", "20 рабочих дней"),
			WarrantyTerms:    getEnv("OFFER_WARRANTY_TERMS", "12 месяцев"),
			CompanyName:      os.Getenv("OFFER_COMPANY_NAME"),
			ManagerName:      os.Getenv("OFFER_MANAGER_NAME"),
			ManagerContact:   os.Getenv("OFFER_MANAGER_CONTACT"),
			ManagerEmail:     os.Getenv("OFFER_MANAGER_EMAIL"),
			ManagerSignature: os.Getenv("OFFER_MANAGER_SIGNATURE"),
			AttorneyDetails:  os.Getenv("OFFER_ATTORNEY_DETAILS"),
		},
	}

	// PORT from Render and similar platforms may come with a leading colon
	cfg.Port = strings.TrimPrefix(getEnv("PORT", "8080"), ":")

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 14*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionCookieSecure, err = getEnvBool("SESSION_COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.PDFResolveLocalFiles, err = getEnvBool("PDF_RESOLVE_LOCAL_FILES", false); err != nil {
		return nil, err
	}
	if cfg.PDFTimeout, err = getEnvDuration("PDF_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	tz := getEnv("DOCUMENT_TIMEZONE", "UTC")
	if cfg.DocumentLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("DOCUMENT_TIMEZONE: %w", err)
	}

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable is not set")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
