package api

import (
	"net/http"
	"strings"
)

// Manifest is the integration descriptor served to the host platform.
type Manifest struct {
	Data ManifestData `json:"data"`
}

// ManifestData is the body of the manifest.
type ManifestData struct {
	Descriptions        Descriptions    `json:"descriptions"`
	IntegrationType     string          `json:"integration_type"`
	IntegrationCategory string          `json:"integration_category"`
	KeyFeatures         []string        `json:"key_features"`
	Settings            []Setting       `json:"settings"`
	TickURL             string          `json:"tick_url"`
	Output              []OutputChannel `json:"output"`
	Permissions         map[string]bool `json:"permissions"`
}

// Descriptions holds the display fields of the manifest.
type Descriptions struct {
	AppName         string `json:"app_name"`
	AppDescription  string `json:"app_description"`
	AppLogo         string `json:"app_logo"`
	AppURL          string `json:"app_url"`
	BackgroundColor string `json:"background_color"`
}

// Setting is one user-configurable integration setting.
type Setting struct {
	Label    string `json:"label"`
	Type     string `json:"type"`
	Default  string `json:"default"`
	Required bool   `json:"required"`
}

// OutputChannel declares an output the integration writes to.
type OutputChannel struct {
	Label string `json:"label"`
	Value bool   `json:"value"`
}

// NewManifest builds the manifest for an app served at appURL.
func NewManifest(appURL, appLogo, tickInterval string) Manifest {
	base := strings.TrimRight(appURL, "/")
	return Manifest{Data: ManifestData{
		Descriptions: Descriptions{
			AppName:         "Traffic Robot 🚦",
			AppDescription:  "Checks road congestion every 10 minutes!",
			AppLogo:         appLogo,
			AppURL:          base,
			BackgroundColor: "#4A90E2",
		},
		IntegrationType:     "interval",
		IntegrationCategory: "Monitoring & Logging",
		KeyFeatures: []string{
			"Real-time traffic congestion updates 🚦",
			"Automatic rerouting suggestions 🗺️",
			"10-minute interval checks ⏱️",
			"Easy integration with Telex channels 📨",
		},
		Settings: []Setting{
			{Label: "interval", Type: "text", Default: tickInterval, Required: true},
		},
		TickURL: base + "/tick",
		Output:  []OutputChannel{{Label: "default", Value: true}},
		Permissions: map[string]bool{
			"read_messages": true,
			"send_messages": true,
		},
	}}
}

// ManifestHandler serves the manifest.
type ManifestHandler struct {
	manifest Manifest
}

// NewManifestHandler creates a new manifest handler.
func NewManifestHandler(manifest Manifest) *ManifestHandler {
	return &ManifestHandler{manifest: manifest}
}

// HandleManifest handles GET /integration.json requests.
func (h *ManifestHandler) HandleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.manifest)
}
