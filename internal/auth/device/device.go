// Package device describes API clients from their User-Agent header.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Client is what the login endpoint records about the calling application.
type Client struct {
	Browser string `json:"browser,omitempty"`
	Version string `json:"version,omitempty"`
	OS      string `json:"os,omitempty"`
	Mobile  bool   `json:"mobile"`
	Bot     bool   `json:"bot"`
	Display string `json:"display"`
}

// Describe parses a User-Agent string. Non-browser clients such as the
// playout controller report their product token as the browser.
func Describe(userAgent string) Client {
	if strings.TrimSpace(userAgent) == "" {
		return Client{Display: "Unknown client"}
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	c := Client{
		Browser: browser,
		Version: version,
		OS:      ua.OS(),
		Mobile:  ua.Mobile(),
		Bot:     ua.Bot(),
	}
	c.Display = DisplayName(userAgent)
	return c
}

// DisplayName renders "Browser on OS", e.g. "Firefox on Linux x86_64".
func DisplayName(userAgent string) string {
	if userAgent == "" {
		return "Unknown client"
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		return strings.TrimSpace(browser + " on " + ua.Platform())
	}
	if browser == "" {
		browser = "Unknown browser"
	}
	if os == "" {
		return browser
	}
	return strings.TrimSpace(browser + " on " + os)
}
