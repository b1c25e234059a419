// Package api fetches the ball-by-ball dataset from a remote feed when no
// local file is configured.
package api

import (
	"context"
	"fmt"
	"time"

	"boundary-tracker/internal/config"
	"boundary-tracker/internal/constants"

	"github.com/valyala/fasthttp"
)

type FeedClient struct {
	url    string
	client *fasthttp.Client
}

func NewFeedClient(cfg *config.Config) *FeedClient {
	return &FeedClient{
		url: cfg.DatasetURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.FeedTimeout,
			WriteTimeout:        constants.FeedTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
			MaxResponseBodySize: constants.FeedMaxBodySize,
		},
	}
}

// FetchDataset downloads the raw dataset bytes. The feed serves a static
// export, so this is a plain GET with no paging.
func (c *FeedClient) FetchDataset(ctx context.Context) ([]byte, error) {
	if c.url == "" {
		return nil, fmt.Errorf("no dataset URL configured")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "text/csv")

	deadline := time.Now().Add(constants.FeedTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("failed to fetch dataset from %s: %w", c.url, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("dataset feed returned status %d", resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
