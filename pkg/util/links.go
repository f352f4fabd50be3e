package util

import (
	"net/url"
	"regexp"
	"strings"
)

// ServiceOther is returned for links that do not belong to a known service.
const ServiceOther = "other"

var urlRegex = regexp.MustCompile(`https?://[^\s<>"'()]+`)

// serviceHosts maps a host (or a registrable suffix of it) to a service name.
// Google hosts are handled separately because the path decides the service.
var serviceHosts = []struct {
	suffix  string
	service string
}{
	{"clickup.com", "clickup"},
	{"notion.so", "notion"},
	{"notion.site", "notion"},
	{"github.com", "github"},
	{"gitlab.com", "gitlab"},
	{"slack.com", "slack"},
	{"figma.com", "figma"},
	{"miro.com", "miro"},
	{"trello.com", "trello"},
	{"asana.com", "asana"},
	{"atlassian.net", "jira"},
	{"dropbox.com", "dropbox"},
	{"drive.google.com", "google_drive"},
}

// DetectService classifies a link by the service it points at.
func DetectService(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ServiceOther
	}
	host := strings.ToLower(u.Hostname())

	if host == "docs.google.com" {
		switch {
		case strings.HasPrefix(u.Path, "/spreadsheets"):
			return "google_sheets"
		case strings.HasPrefix(u.Path, "/presentation"):
			return "google_slides"
		default:
			return "google_docs"
		}
	}

	for _, sh := range serviceHosts {
		if host == sh.suffix || strings.HasSuffix(host, "."+sh.suffix) {
			return sh.service
		}
	}
	return ServiceOther
}

// ExtractURLs returns every http(s) URL found in text, in order of appearance.
func ExtractURLs(text string) []string {
	matches := urlRegex.FindAllString(text, -1)
	for i, m := range matches {
		matches[i] = strings.TrimRight(m, ".,;:!?")
	}
	return matches
}
