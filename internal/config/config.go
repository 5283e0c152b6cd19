// Package config defines service configuration and its loading.
//
// Configuration is read once at startup and treated as immutable for the
// lifetime of the process.
package config

// Source kinds.
const (
	SourceLive   = "live"
	SourceStatic = "static"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// Source selects the data source: live (Directions API) or static (fixture).
	Source string `koanf:"source"`

	// Fixture is a bundled fixture name (congested, clear) or a JSON file path.
	Fixture string `koanf:"fixture"`

	// MapsAPIKey is required when Source is live.
	MapsAPIKey string `koanf:"maps_api_key"`

	// MapsBaseURL overrides the Directions API host.
	MapsBaseURL string `koanf:"maps_base_url"`

	// RouteName, Origin and Destination describe the monitored route.
	RouteName   string `koanf:"route_name"`
	Origin      string `koanf:"origin"`
	Destination string `koanf:"destination"`

	// FetchTimeoutMS and DeliveryTimeoutMS bound every outbound call.
	FetchTimeoutMS    int `koanf:"fetch_timeout_ms"`
	DeliveryTimeoutMS int `koanf:"delivery_timeout_ms"`

	// StatusWebhookURL receives best-effort status events; empty disables it.
	StatusWebhookURL string `koanf:"status_webhook_url"`
	StatusUsername   string `koanf:"status_username"`
	StatusEventName  string `koanf:"status_event_name"`

	// StatusQueueSize and StatusWorkers size the status dispatcher.
	StatusQueueSize int `koanf:"status_queue_size"`
	StatusWorkers   int `koanf:"status_workers"`

	// AppURL is the public base URL advertised in the manifest.
	AppURL string `koanf:"app_url"`

	// AppLogo is the logo URL advertised in the manifest.
	AppLogo string `koanf:"app_logo"`

	// TickInterval is the cron expression the host platform should use.
	TickInterval string `koanf:"tick_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":5000",
		Source:            SourceLive,
		Fixture:           "congested",
		RouteName:         "Highway 5",
		Origin:            "Start",
		Destination:       "End",
		FetchTimeoutMS:    8000,
		DeliveryTimeoutMS: 8000,
		StatusUsername:    "traffic-robot",
		StatusEventName:   "Traffic Update",
		StatusQueueSize:   256,
		StatusWorkers:     2,
		AppURL:            "http://localhost:5000",
		AppLogo:           "https://example.com/robot-logo.png",
		TickInterval:      "*/10 * * * *",
	}
}
