package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the map health check.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Mode: "once" runs a single check and exits, "watch" keeps checking.
// - Interval: The duration between checks in watch mode.
// - Port: The port for the monitoring server in watch mode.
// - Target: What to open and how to judge it.
// - Browser: Which automation driver to use and how to launch it.
// - ReportDir: Where attachments and run summaries are written.
// - Geocoder: Optional reverse geocoding of drifted coordinates.
// - Database: Optional PostgreSQL storage of results.
type Config struct {
	Env       string         // Env is the current environment: local, development, production.
	Mode      string         // Mode is either once or watch.
	Interval  time.Duration  // Interval between checks in watch mode.
	Port      int            // Port is the monitoring server port.
	Target    TargetConfig   // Target describes the page under test.
	Browser   BrowserConfig  // Browser configures the automation driver.
	ReportDir string         // ReportDir receives attachments and run summaries.
	Geocoder  GeocoderConfig // Geocoder configures reverse geocoding.
	Database  PostgresConfig // Database holds the postgres database configuration.
}

// TargetConfig describes the page under test and the pass criteria.
type TargetConfig struct {
	URL              string        // URL of the page embedding the map.
	MapSelector      string        // MapSelector locates the map container.
	PopupSelector    string        // PopupSelector locates the coordinate popup.
	WaitTimeout      time.Duration // WaitTimeout bounds every visibility wait.
	SLAThreshold     time.Duration // SLAThreshold is the exclusive latency limit.
	ExpectedLatitude float64       // ExpectedLatitude is what the popup should report.
	Tolerance        float64       // Tolerance is the inclusive drift limit.
}

// BrowserConfig selects and configures the automation driver.
type BrowserConfig struct {
	Driver          string // Driver is playwright or rod.
	Headless        bool
	InstallBrowsers bool
	ExecutablePath  string
	ViewportWidth   int
	ViewportHeight  int
}

// GeocoderConfig configures the optional reverse geocoder.
type GeocoderConfig struct {
	Provider string // Provider is none, google or nominatim.
	APIKey   string
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// Enabled reports whether a database host was configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// MustLoad reads .env, the optional MAPWATCH_CONFIG file and the environment,
// and panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	vpr := newViper()
	if path := vpr.GetString("config"); path != "" {
		vpr.SetConfigFile(path)
		if err := vpr.ReadInConfig(); err != nil {
			panic("failed to read configuration file: " + err.Error())
		}
	}

	mode := strings.ToLower(vpr.GetString("mode"))
	if mode != "once" && mode != "watch" {
		panic("failed to parse mode from configuration, must be once or watch")
	}

	return &Config{
		Env:       vpr.GetString("env"),
		Mode:      mode,
		Interval:  mustDuration(vpr, "interval", "failed to parse interval from configuration"),
		Port:      mustInt(vpr, "health_port", "failed to parse port for monitoring server from configuration"),
		ReportDir: vpr.GetString("report_dir"),
		Target: TargetConfig{
			URL:              vpr.GetString("target_url"),
			MapSelector:      vpr.GetString("map_selector"),
			PopupSelector:    vpr.GetString("popup_selector"),
			WaitTimeout:      mustDuration(vpr, "wait_timeout", "failed to parse wait timeout from configuration"),
			SLAThreshold:     mustDuration(vpr, "sla_threshold", "failed to parse sla threshold from configuration"),
			ExpectedLatitude: mustFloat(vpr, "expected_latitude", "failed to parse expected latitude from configuration"),
			Tolerance:        mustFloat(vpr, "tolerance", "failed to parse tolerance from configuration"),
		},
		Browser: BrowserConfig{
			Driver:          vpr.GetString("driver"),
			Headless:        mustBool(vpr, "headless", "failed to parse headless flag from configuration"),
			InstallBrowsers: mustBool(vpr, "install_browsers", "failed to parse install browsers flag from configuration"),
			ExecutablePath:  vpr.GetString("executable_path"),
			ViewportWidth:   mustInt(vpr, "viewport_width", "failed to parse viewport width from configuration"),
			ViewportHeight:  mustInt(vpr, "viewport_height", "failed to parse viewport height from configuration"),
		},
		Geocoder: GeocoderConfig{
			Provider: vpr.GetString("geocoder"),
			APIKey:   vpr.GetString("geocoder_key"),
		},
		Database: PostgresConfig{
			Host:     vpr.GetString("postgres.host"),
			Port:     vpr.GetString("postgres.port"),
			User:     vpr.GetString("postgres.user"),
			Password: vpr.GetString("postgres.password"),
			Name:     vpr.GetString("postgres.db_name"),
		},
	}
}

// newViper binds every key to a MAPWATCH_ prefixed variable; the database
// keys keep their unprefixed DB_* names.
func newViper() *viper.Viper {
	vpr := viper.New()
	vpr.SetEnvPrefix("MAPWATCH")
	vpr.AutomaticEnv()

	defaults := map[string]string{
		"env":               "production",
		"mode":              "once",
		"interval":          "5m",
		"health_port":       "8080",
		"target_url":        "https://leafletjs.com/examples/quick-start/example.html",
		"map_selector":      "#map",
		"popup_selector":    ".leaflet-popup-content",
		"wait_timeout":      "10s",
		"sla_threshold":     "2000ms",
		"expected_latitude": "51.505",
		"tolerance":         "0.001",
		"driver":            "playwright",
		"headless":          "true",
		"install_browsers":  "false",
		"viewport_width":    "1920",
		"viewport_height":   "1080",
		"report_dir":        "reports",
		"geocoder":          "none",
	}
	for key, value := range defaults {
		vpr.SetDefault(key, value)
	}

	_ = vpr.BindEnv("postgres.host", "DB_HOST")
	_ = vpr.BindEnv("postgres.port", "DB_PORT")
	_ = vpr.BindEnv("postgres.user", "DB_USERNAME")
	_ = vpr.BindEnv("postgres.password", "DB_PASSWORD")
	_ = vpr.BindEnv("postgres.db_name", "DB_NAME")
	vpr.SetDefault("postgres.port", "5432")

	return vpr
}

func mustDuration(vpr *viper.Viper, key, msg string) time.Duration {
	value, err := time.ParseDuration(vpr.GetString(key))
	if err != nil || value <= 0 {
		panic(msg)
	}

	return value
}

func mustInt(vpr *viper.Viper, key, msg string) int {
	value, err := strconv.Atoi(vpr.GetString(key))
	if err != nil {
		panic(msg)
	}

	return value
}

func mustFloat(vpr *viper.Viper, key, msg string) float64 {
	value, err := strconv.ParseFloat(vpr.GetString(key), 64)
	if err != nil {
		panic(msg)
	}

	return value
}

func mustBool(vpr *viper.Viper, key, msg string) bool {
	value, err := strconv.ParseBool(vpr.GetString(key))
	if err != nil {
		panic(msg)
	}

	return value
}
