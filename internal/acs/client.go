// Package acs fetches American Community Survey tables from the Census Bureau
// data API.
package acs

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/acsmap/internal/choropleth"
	"github.com/sells-group/acsmap/internal/fetcher"
)

const (
	// DefaultBaseURL is the Census data API root.
	DefaultBaseURL = "https://api.census.gov/data"
	// DefaultYear is the ACS vintage queried when none is configured.
	DefaultYear = 2022
	// DefaultDataset is the ACS 5-year detailed tables dataset.
	DefaultDataset = "acs/acs5"
	// DefaultMaxVars leaves room for NAME under the API's 50 variable cap.
	DefaultMaxVars = 49

	// maxConcurrentChunks bounds parallel data requests for wide tables.
	maxConcurrentChunks = 4
)

var tableIDPattern = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{5}[A-Z]{0,3}$`)

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API root (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithYear sets the ACS vintage.
func WithYear(year int) Option {
	return func(c *Client) {
		if year > 0 {
			c.year = year
		}
	}
}

// WithDataset sets the dataset path, e.g. "acs/acs1".
func WithDataset(ds string) Option {
	return func(c *Client) {
		if ds != "" {
			c.dataset = strings.Trim(ds, "/")
		}
	}
}

// WithAPIKey sets the Census API key. Requests without a key are allowed at a
// lower daily quota.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithMaxVars sets how many variables go into one data request.
func WithMaxVars(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxVars = n
		}
	}
}

// Client implements choropleth.Fetcher against the Census data API.
type Client struct {
	f       fetcher.Fetcher
	baseURL string
	year    int
	dataset string
	apiKey  string
	maxVars int
}

var _ choropleth.Fetcher = (*Client)(nil)

// NewClient creates a Client that downloads through f.
func NewClient(f fetcher.Fetcher, opts ...Option) *Client {
	c := &Client{
		f:       f,
		baseURL: DefaultBaseURL,
		year:    DefaultYear,
		dataset: DefaultDataset,
		maxVars: DefaultMaxVars,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeTableID upper-cases and validates a table id such as "b19013".
func NormalizeTableID(tableID string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(tableID))
	if !tableIDPattern.MatchString(id) {
		return "", choropleth.NewInvalidArgumentError("acs: table id",
			eris.Errorf("%q is not an ACS table id (e.g. B19013)", tableID))
	}
	return id, nil
}

// FetchTable downloads every estimate column of tableID for the geographies
// selected by filter.
func (c *Client) FetchTable(ctx context.Context, tableID string, filter choropleth.GeographyFilter) (*choropleth.FetchedTable, error) {
	id, err := NormalizeTableID(tableID)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "acs"), zap.String("table", id))

	group, err := c.Group(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(group.Columns) == 0 {
		return nil, choropleth.NewFetchError("acs: fetch table", eris.Errorf("table %s has no estimate columns", id))
	}

	chunks := chunkColumns(group.Columns, c.maxVars)
	log.Debug("fetching table data",
		zap.Int("columns", len(group.Columns)),
		zap.Int("requests", len(chunks)),
		zap.Stringer("filter", filter),
	)

	results := make([]*chunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunks)
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := c.fetchChunk(gctx, chunk, filter)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, choropleth.NewFetchError("acs: fetch table", err)
	}

	rows, err := mergeChunks(results)
	if err != nil {
		return nil, choropleth.NewFetchError("acs: fetch table", err)
	}

	log.Info("fetched table", zap.Int("rows", len(rows)), zap.Int("columns", len(group.Columns)))
	return &choropleth.FetchedTable{
		TableID:  id,
		Title:    group.Title,
		Universe: group.Universe,
		Columns:  group.Columns,
		Rows:     rows,
	}, nil
}

// Group downloads the variable metadata for a table.
func (c *Client) Group(ctx context.Context, tableID string) (*Group, error) {
	id, err := NormalizeTableID(tableID)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/%d/%s/groups/%s.json", c.baseURL, c.year, c.dataset, id)

	data, err := c.get(ctx, u)
	if err != nil {
		return nil, choropleth.NewFetchError("acs: group metadata", eris.Wrapf(err, "table %s", id))
	}
	group, err := parseGroup(id, data)
	if err != nil {
		return nil, choropleth.NewFetchError("acs: group metadata", err)
	}
	return group, nil
}

func (c *Client) fetchChunk(ctx context.Context, cols []choropleth.Column, filter choropleth.GeographyFilter) (*chunkResult, error) {
	vars := make([]string, 0, len(cols)+1)
	vars = append(vars, choropleth.GeoName)
	for _, col := range cols {
		vars = append(vars, col.Name)
	}

	q := filter.Values()
	q.Set("get", strings.Join(vars, ","))
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u := fmt.Sprintf("%s/%d/%s?%s", c.baseURL, c.year, c.dataset, q.Encode())

	data, err := c.get(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "acs: fetch %s..%s", cols[0].Name, cols[len(cols)-1].Name)
	}
	return parseResponse(data, cols)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := c.f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "acs: read response")
	}
	return data, nil
}

func chunkColumns(cols []choropleth.Column, size int) [][]choropleth.Column {
	var chunks [][]choropleth.Column
	for start := 0; start < len(cols); start += size {
		end := min(start+size, len(cols))
		chunks = append(chunks, cols[start:end])
	}
	return chunks
}

// mergeChunks joins per-chunk rows on their geography key, keeping the row
// order of the first chunk. Geographies missing from a later chunk keep nil
// estimates for that chunk's columns.
func mergeChunks(chunks []*chunkResult) ([]choropleth.FetchedRow, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	width := 0
	for _, ch := range chunks {
		width += ch.width
	}

	first := chunks[0]
	rows := make([]choropleth.FetchedRow, len(first.rows))
	index := make(map[string]int, len(first.rows))
	for i, r := range first.rows {
		est := make([]*float64, width)
		copy(est, r.Estimates)
		rows[i] = choropleth.FetchedRow{Geography: r.Geography, Estimates: est}
		if _, dup := index[first.keys[i]]; dup {
			return nil, eris.Errorf("acs: duplicate geography %q in response", first.keys[i])
		}
		index[first.keys[i]] = i
	}

	offset := first.width
	dropped := 0
	for _, ch := range chunks[1:] {
		for i, r := range ch.rows {
			at, ok := index[ch.keys[i]]
			if !ok {
				dropped++
				continue
			}
			copy(rows[at].Estimates[offset:], r.Estimates)
		}
		offset += ch.width
	}
	if dropped > 0 {
		zap.L().Warn("acs: geographies absent from the first request were dropped", zap.Int("rows", dropped))
	}
	return rows, nil
}

// QueryURL returns a browsable API URL for the whole table group, without the key.
func (c *Client) QueryURL(tableID string, filter choropleth.GeographyFilter) (string, error) {
	id, err := NormalizeTableID(tableID)
	if err != nil {
		return "", err
	}
	q := filter.Values()
	q.Set("get", choropleth.GeoName+",group("+id+")")
	return fmt.Sprintf("%s/%d/%s?%s", c.baseURL, c.year, c.dataset, q.Encode()), nil
}
