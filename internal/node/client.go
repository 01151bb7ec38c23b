package node

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nao1215/overlaysurvey/internal/model"
)

// Admin endpoint paths used by the survey.
const (
	PathSCP            = "/scp"
	PathInfo           = "/info"
	PathPeers          = "/peers"
	PathSurveyTopology = "/surveytopology"
	PathSurveyResult   = "/getsurveyresult"
	PathStopSurvey     = "/stopsurvey"
)

// Client issues typed survey calls over a Transport.
type Client struct {
	transport Transport
}

// NewClient creates a client over t.
func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// Identity returns the queried node's own id (from /scp) and software
// version (from /info).
func (c *Client) Identity(ctx context.Context) (id, version string, err error) {
	var scp model.SCPResponse
	query := url.Values{"limit": {"0"}, "fullkeys": {"true"}}
	if err := c.getJSON(ctx, PathSCP, query, &scp); err != nil {
		return "", "", err
	}
	if scp.You == "" {
		return "", "", &model.ProtocolError{Endpoint: PathSCP, Reason: `missing field "you"`}
	}

	var info model.InfoResponse
	if err := c.getJSON(ctx, PathInfo, nil, &info); err != nil {
		return "", "", err
	}
	if info.Info == nil || info.Info.Build == nil {
		return "", "", &model.ProtocolError{Endpoint: PathInfo, Reason: `missing field "info.build"`}
	}

	return scp.You, *info.Info.Build, nil
}

// Peers returns the node's authenticated connections. Null lists come back
// as empty slices.
func (c *Client) Peers(ctx context.Context) (*model.AuthenticatedPeers, error) {
	var resp model.PeersResponse
	if err := c.getJSON(ctx, PathPeers, url.Values{"fullkeys": {"true"}}, &resp); err != nil {
		return nil, err
	}
	if resp.AuthenticatedPeers == nil {
		return nil, &model.ProtocolError{Endpoint: PathPeers, Reason: `missing field "authenticated_peers"`}
	}
	return resp.AuthenticatedPeers, nil
}

// SurveyTopology asks the node to survey id for duration seconds.
// The response body is ignored.
func (c *Client) SurveyTopology(ctx context.Context, id string, duration int) error {
	query := url.Values{
		"duration": {strconv.Itoa(duration)},
		"node":     {id},
	}
	if _, err := c.transport.Get(ctx, PathSurveyTopology, query); err != nil {
		return fmt.Errorf("failed to request survey of %s: %w", id, err)
	}
	return nil
}

// SurveyResult fetches the aggregated survey snapshot. Validation of the
// topology field is left to the caller.
func (c *Client) SurveyResult(ctx context.Context) (*model.SurveyResult, error) {
	var result model.SurveyResult
	if err := c.getJSON(ctx, PathSurveyResult, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StopSurvey ends any survey the node is running. The response body is
// ignored.
func (c *Client) StopSurvey(ctx context.Context) error {
	if _, err := c.transport.Get(ctx, PathStopSurvey, nil); err != nil {
		return fmt.Errorf("failed to stop survey: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	body, err := c.transport.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
