package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client fetches catalog manifests and dataset metadata. It does not retry;
// retry policy belongs to the sync worker's caller.
type Client struct {
	http        *http.Client
	log         *zap.Logger
	pageSize    int
	concurrency int

	// Scheme is "https" in production; tests point it at an httptest server.
	Scheme string
}

// NewClient creates a portal client.
func NewClient(log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:        &http.Client{Timeout: 30 * time.Second},
		log:         log,
		pageSize:    1000,
		concurrency: 8,
		Scheme:      "https",
	}
}

// SetPageSize overrides the catalog page size.
func (c *Client) SetPageSize(n int) {
	if n > 0 {
		c.pageSize = n
	}
}

// SetConcurrency overrides the metadata fan-out limit.
func (c *Client) SetConcurrency(n int) {
	if n > 0 {
		c.concurrency = n
	}
}

// FetchManifest retrieves the full catalog manifest for a portal domain,
// paging through the catalog endpoint until exhausted.
func (c *Client) FetchManifest(ctx context.Context, domain string) (*Manifest, error) {
	manifest := &Manifest{}
	offset := 0

	for {
		page, err := c.fetchPage(ctx, domain, offset)
		if err != nil {
			return nil, err
		}

		manifest.Results = append(manifest.Results, page.Results...)
		manifest.ResultSetSize = page.ResultSetSize

		if len(page.Results) < c.pageSize {
			break
		}
		offset += len(page.Results)
	}

	c.log.Debug("manifest fetched",
		zap.String("domain", domain),
		zap.Int("datasets", len(manifest.Results)))
	return manifest, nil
}

func (c *Client) fetchPage(ctx context.Context, domain string, offset int) (*Manifest, error) {
	u := url.URL{
		Scheme: c.Scheme,
		Host:   domain,
		Path:   "/api/catalog/v1",
		RawQuery: url.Values{
			"only":   {"dataset"},
			"limit":  {strconv.Itoa(c.pageSize)},
			"offset": {strconv.Itoa(offset)},
		}.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Domain: domain, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &PortalUnavailable{Domain: domain, StatusCode: resp.StatusCode}
	}

	var page Manifest
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode manifest page: %w", err)
	}
	return &page, nil
}

// FetchMetadata loads per-dataset metadata documents, one request per ref,
// fanned out in parallel with bounded concurrency. The result preserves the
// order of refs. A single failing ref fails the whole call.
func (c *Client) FetchMetadata(ctx context.Context, refs []DatasetRef) ([]*DatasetMetadata, error) {
	results := make([]*DatasetMetadata, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			meta, err := c.fetchMetadata(ctx, ref)
			if err != nil {
				return err
			}
			results[i] = meta
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) fetchMetadata(ctx context.Context, ref DatasetRef) (*DatasetMetadata, error) {
	u := url.URL{
		Scheme: c.Scheme,
		Host:   ref.Portal,
		Path:   "/api/views/metadata/v1/" + ref.ID,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Domain: ref.Portal, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &PortalUnavailable{Domain: ref.Portal, StatusCode: resp.StatusCode}
	}

	var meta DatasetMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", ref.ID, err)
	}
	if meta.Domain == "" {
		meta.Domain = ref.Portal
	}
	return &meta, nil
}
