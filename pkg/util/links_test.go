package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectService(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://app.clickup.com/t/123", "clickup"},
		{"https://www.notion.so/team/Page-abc", "notion"},
		{"https://acme.notion.site/Roadmap", "notion"},
		{"https://docs.google.com/document/d/abc/edit", "google_docs"},
		{"https://docs.google.com/spreadsheets/d/abc", "google_sheets"},
		{"https://docs.google.com/presentation/d/abc", "google_slides"},
		{"https://drive.google.com/file/d/abc", "google_drive"},
		{"https://github.com/acme/repo/issues/1", "github"},
		{"https://acme.atlassian.net/browse/ZEN-1", "jira"},
		{"https://www.figma.com/file/xyz", "figma"},
		{"https://example.com/page", "other"},
		{"https://notclickup.com/t/1", "other"},
		{"not a url", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectService(tt.url))
		})
	}
}

func TestExtractURLs(t *testing.T) {
	text := "See https://app.clickup.com/t/123, and (https://github.com/acme/repo). Done."
	urls := ExtractURLs(text)
	assert.Equal(t, []string{"https://app.clickup.com/t/123", "https://github.com/acme/repo"}, urls)

	assert.Empty(t, ExtractURLs("no links here"))
}
