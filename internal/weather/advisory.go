package weather

import (
	"fmt"
	"strings"
)

// Spray safety thresholds.
const (
	sprayWindLimit    = 8.0  // m/s, drift risk above this
	fungalHumidity    = 85   // percent
	heatStressTempC   = 40.0
	frostWarningTempC = 5.0
)

// SprayCheck reports whether conditions are safe for pesticide
// spraying, with the reason when they are not.
func SprayCheck(obs Observation) (bool, string) {
	desc := strings.ToLower(obs.Description)

	if strings.Contains(desc, "rain") || strings.Contains(desc, "storm") ||
		strings.Contains(desc, "drizzle") || strings.Contains(desc, "thunder") {
		return false, "Rain expected. Spraying now will wash off the pesticide, wait for a dry spell."
	}
	if obs.WindSpeed >= sprayWindLimit {
		return false, fmt.Sprintf("Wind speed is %.1f m/s. Spray will drift to neighbouring fields, wait for calmer conditions.", obs.WindSpeed)
	}
	return true, "Conditions look suitable for spraying. Prefer early morning or late evening."
}

// CropAdvisories derives farming advisories from current conditions.
func CropAdvisories(obs Observation) []string {
	var advisories []string

	safe, sprayMsg := SprayCheck(obs)
	if !safe {
		advisories = append(advisories, sprayMsg)
	}

	if obs.Humidity >= fungalHumidity {
		advisories = append(advisories, fmt.Sprintf("Humidity is %d%%. High risk of fungal diseases, inspect crops for early symptoms.", obs.Humidity))
	}
	if obs.TempC >= heatStressTempC {
		advisories = append(advisories, fmt.Sprintf("Temperature is %.0f°C. Heat stress likely, irrigate in the evening and provide shade for young plants.", obs.TempC))
	}
	if obs.TempC <= frostWarningTempC {
		advisories = append(advisories, fmt.Sprintf("Temperature is %.0f°C. Frost risk, cover sensitive crops overnight and irrigate lightly before sunset.", obs.TempC))
	}

	if len(advisories) == 0 {
		advisories = append(advisories, "No weather risks detected. Conditions are suitable for routine field work.")
	}

	return advisories
}

// Summary formats an observation into a short readable report.
func Summary(obs Observation) string {
	return fmt.Sprintf("%s: %s, %.1f°C (feels like %.1f°C), humidity %d%%, wind %.1f m/s",
		obs.City, obs.Description, obs.TempC, obs.FeelsLikeC, obs.Humidity, obs.WindSpeed)
}
