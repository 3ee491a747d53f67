package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// ResourceClient checks segments, agents and surveys against their owning services.
// A service without a configured base URL is not checked.
type ResourceClient struct {
	client   *http.Client
	segments *config.ResourceRoutes
	agents   *config.ResourceRoutes
	surveys  *config.ResourceRoutes
}

func NewResourceClient(cfg config.ResourceConfig) *ResourceClient {
	c := &ResourceClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		segments: config.GetSegmentRoutes(cfg),
		agents:   config.GetAgentRoutes(cfg),
		surveys:  config.GetSurveyRoutes(cfg),
	}

	for _, routes := range []*config.ResourceRoutes{c.segments, c.agents, c.surveys} {
		if !routes.Enabled() {
			logrus.Warnf("No base URL configured for %s service, %s references will not be verified", routes.Name, routes.Name)
		}
	}
	return c
}

// SegmentExists reports whether the segment is known to the segmentation service
func (c *ResourceClient) SegmentExists(ctx context.Context, segmentID uint) (bool, error) {
	if !c.segments.Enabled() {
		return true, nil
	}
	apiURL, err := c.segments.BuildURL("get_segment", map[string]string{"id": formatID(segmentID)})
	if err != nil {
		return false, err
	}
	found, _, err := c.get(ctx, apiURL)
	return found, err
}

// SurveyExists reports whether the survey is known to the survey service
func (c *ResourceClient) SurveyExists(ctx context.Context, surveyID uint) (bool, error) {
	if !c.surveys.Enabled() {
		return true, nil
	}
	apiURL, err := c.surveys.BuildURL("get_survey", map[string]string{"id": formatID(surveyID)})
	if err != nil {
		return false, err
	}
	found, _, err := c.get(ctx, apiURL)
	return found, err
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

// AgentAvailable reports whether the agent exists and is free for the whole window
func (c *ResourceClient) AgentAvailable(ctx context.Context, agentID uint, start, end time.Time) (bool, error) {
	if !c.agents.Enabled() {
		return true, nil
	}
	apiURL, err := c.agents.BuildURL("availability", map[string]string{
		"id":    formatID(agentID),
		"start": url.QueryEscape(start.UTC().Format(time.RFC3339)),
		"end":   url.QueryEscape(end.UTC().Format(time.RFC3339)),
	})
	if err != nil {
		return false, err
	}

	found, body, err := c.get(ctx, apiURL)
	if err != nil || !found {
		return false, err
	}

	var availability availabilityResponse
	if err := json.Unmarshal(body, &availability); err != nil {
		return false, fmt.Errorf("failed to parse agent availability: %w", err)
	}
	return availability.Available, nil
}

// get returns (true, body) on 200 and (false, nil) on 404. Any other status is an error.
func (c *ResourceClient) get(ctx context.Context, apiURL string) (bool, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return false, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, nil, fmt.Errorf("failed to reach %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return true, body, nil
	case http.StatusNotFound:
		return false, nil, nil
	default:
		return false, nil, fmt.Errorf("%s returned status %d: %s", req.URL.Path, resp.StatusCode, string(body))
	}
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
