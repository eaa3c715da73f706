// Package urls builds shareable report viewer links
package urls

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrInvalidBaseURL is returned when the base URL is not absolute
	ErrInvalidBaseURL = errors.New("base URL must be an absolute http(s) URL")
)

// Config defines the share link templates. Templates use text/template with
// the sprig function map.
type Config struct {
	// BaseURL is the public address of the report viewer frontend
	BaseURL string `yaml:"baseURL" default:"http://localhost:8088"`
	// PermalinkPath renders the path of a permalink from .Key
	PermalinkPath string `yaml:"permalinkPath" default:"/reportviewer/p/{{ .Key }}/"`
	// ReportViewerPath renders the path of a report viewer from .ID and .Slug
	ReportViewerPath string `yaml:"reportViewerPath" default:"/reportviewer/{{ .Slug | default .ID }}/"`
	// EmailSubject renders the share email subject from .Title
	EmailSubject string `yaml:"emailSubject" default:"[Report Viewer] {{ .Title | trim }}"`
	// EmailBody renders the share email body from .Title and .URL
	EmailBody string `yaml:"emailBody" default:"Check out this report viewer: {{ .URL }}"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	return nil
}
