package config

import "time"

// HarnessConfig holds defaults for the formcheck batch driver. Command-line
// flags override these.
type HarnessConfig struct {
	APIURL          string
	FormURL         string
	BrowserBin      string
	BrowserHeadless bool
	Timeout         time.Duration
	Parallel        int
}

// LoadHarnessConfig constructs a HarnessConfig from environment variables.
func LoadHarnessConfig() HarnessConfig {
	return HarnessConfig{
		APIURL:          GetString("API_URL", "http://127.0.0.1:5000"),
		FormURL:         GetString("FORM_URL", "http://127.0.0.1:5000/form.html"),
		BrowserBin:      GetString("BROWSER_BIN", ""),
		BrowserHeadless: GetBool("BROWSER_HEADLESS", true),
		Timeout:         GetDuration("HARNESS_TIMEOUT", 5*time.Second),
		Parallel:        GetInt("HARNESS_PARALLEL", 1),
	}
}
