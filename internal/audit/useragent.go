package audit

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceSummary renders a User-Agent as "Browser on OS" for reviewer views
// of the trail. The raw string is still what gets stored and exported.
func DeviceSummary(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	osName := ua.OS()
	if osName == "" {
		osName = ua.Platform()
	}
	if osName == "" {
		osName = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + osName)
}
