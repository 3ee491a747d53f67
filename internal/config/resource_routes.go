package config

import (
	"fmt"
	"strings"
)

// ResourceEndpoint describes a lookup endpoint on one of the resource services
type ResourceEndpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// ResourceRoutes maps a resource service to its base URL and endpoints
type ResourceRoutes struct {
	Name      string                      `json:"name"`
	BaseURL   string                      `json:"base_url"`
	Endpoints map[string]ResourceEndpoint `json:"endpoints"`
}

// Enabled reports whether a base URL was configured for the service
func (r *ResourceRoutes) Enabled() bool {
	return r.BaseURL != ""
}

// BuildURL resolves an endpoint path against the base URL, substituting {placeholders}
func (r *ResourceRoutes) BuildURL(endpoint string, params map[string]string) (string, error) {
	ep, ok := r.Endpoints[endpoint]
	if !ok {
		return "", fmt.Errorf("%s route %q not found", r.Name, endpoint)
	}
	path := ep.Path
	for key, value := range params {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	return strings.TrimRight(r.BaseURL, "/") + path, nil
}

// GetSegmentRoutes returns the segmentation service routes
func GetSegmentRoutes(cfg ResourceConfig) *ResourceRoutes {
	return &ResourceRoutes{
		Name:    "segments",
		BaseURL: cfg.SegmentsURL,
		Endpoints: map[string]ResourceEndpoint{
			"get_segment": {Method: "GET", Path: "/segments/{id}", Description: "Fetch a segment with members"},
		},
	}
}

// GetAgentRoutes returns the agent service routes
func GetAgentRoutes(cfg ResourceConfig) *ResourceRoutes {
	return &ResourceRoutes{
		Name:    "agents",
		BaseURL: cfg.AgentsURL,
		Endpoints: map[string]ResourceEndpoint{
			"availability": {
				Method:      "GET",
				Path:        "/agents/{id}/availability?start={start}&end={end}",
				Description: "Check whether an agent is free for a window",
			},
		},
	}
}

// GetSurveyRoutes returns the survey service routes
func GetSurveyRoutes(cfg ResourceConfig) *ResourceRoutes {
	return &ResourceRoutes{
		Name:    "surveys",
		BaseURL: cfg.SurveysURL,
		Endpoints: map[string]ResourceEndpoint{
			"get_survey": {Method: "GET", Path: "/surveys/{id}", Description: "Fetch an active survey"},
		},
	}
}
