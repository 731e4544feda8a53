package choropleth

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// DefaultBuckets is the bucket count used when a request does not set one.
	DefaultBuckets = 9
	// MaxBuckets is the largest accepted bucket count.
	MaxBuckets = 9
)

// Fetcher is the data fetch service.
type Fetcher interface {
	FetchTable(ctx context.Context, tableID string, filter GeographyFilter) (*FetchedTable, error)
}

// RenderRequest carries everything a renderer needs.
type RenderRequest struct {
	Table      RegionValueTable
	Level      DetailLevel
	Buckets    int // 1 = continuous scale, 2-9 = discrete buckets
	Title      string
	Subtitle   string
	ShowLabels bool
}

// Renderer draws a choropleth from a normalized dataset.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) error
}

// Request is one choropleth invocation.
type Request struct {
	TableID    string
	Level      DetailLevel
	Buckets    int
	ShowLabels bool
	Title      string // defaults to the fetched table title
	Subtitle   string // defaults to the selected column label for multi-column tables
}

// NewRequest returns a request with the default bucket count and labels on.
func NewRequest(tableID string, level DetailLevel) Request {
	return Request{
		TableID:    tableID,
		Level:      level,
		Buckets:    DefaultBuckets,
		ShowLabels: true,
	}
}

// Validate checks the request preconditions.
func (r Request) Validate() error {
	const op = "validate request"
	if !r.Level.Valid() {
		return invalidArgument(op, "unknown detail level %q (valid: state, county, zip)", r.Level)
	}
	if r.Buckets <= 0 || r.Buckets > MaxBuckets {
		return invalidArgument(op, "bucket count %d must be between 1 and %d", r.Buckets, MaxBuckets)
	}
	if strings.TrimSpace(r.TableID) == "" {
		return invalidArgument(op, "table id is required")
	}
	return nil
}

// Result describes a completed render.
type Result struct {
	Table      RegionValueTable
	Column     int
	ColumnName string
	Title      string
	Subtitle   string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNormalizeOptions passes opts to every Normalize call.
func WithNormalizeOptions(opts ...NormalizeOption) Option {
	return func(p *Pipeline) {
		p.normalizeOpts = append(p.normalizeOpts, opts...)
	}
}

// Pipeline wires the fetch service, column chooser and renderer together.
type Pipeline struct {
	fetcher       Fetcher
	chooser       Chooser
	renderer      Renderer
	normalizeOpts []NormalizeOption
}

// New creates a Pipeline.
func New(f Fetcher, c Chooser, r Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:  f,
		chooser:  c,
		renderer: r,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RenderChoropleth validates req, fetches the table, selects a column, normalizes
// the rows and renders them, in that order. Nothing is rendered on error.
func (p *Pipeline) RenderChoropleth(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if p.fetcher == nil || p.renderer == nil {
		return nil, invalidArgument("render choropleth", "pipeline requires a fetcher and a renderer")
	}

	log := zap.L().With(
		zap.String("component", "choropleth"),
		zap.String("table", req.TableID),
		zap.String("level", req.Level.String()),
	)

	filter, err := BuildGeographyFilter(req.Level)
	if err != nil {
		return nil, err
	}

	log.Debug("fetching table", zap.Stringer("filter", filter))
	table, err := p.fetcher.FetchTable(ctx, req.TableID, filter)
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, NewFetchError("fetch table", err)
	}
	if table == nil {
		return nil, NewFetchError("fetch table", eris.Errorf("fetch service returned no table for %s", req.TableID))
	}

	column, err := SelectColumn(ctx, table, req.TableID, p.chooser)
	if err != nil {
		return nil, err
	}

	rows, err := Normalize(req.Level, table, column, p.normalizeOpts...)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Table:      rows,
		Column:     column,
		ColumnName: table.Columns[column].Name,
		Title:      req.Title,
		Subtitle:   req.Subtitle,
	}
	if res.Title == "" {
		res.Title = table.Title
	}
	if res.Title == "" {
		res.Title = req.TableID
	}
	if res.Subtitle == "" && len(table.Columns) > 1 {
		res.Subtitle = table.Columns[column].Label
	}

	log.Info("rendering choropleth",
		zap.String("column", res.ColumnName),
		zap.Int("rows", len(rows)),
		zap.Int("buckets", req.Buckets),
	)
	err = p.renderer.Render(ctx, RenderRequest{
		Table:      rows,
		Level:      req.Level,
		Buckets:    req.Buckets,
		Title:      res.Title,
		Subtitle:   res.Subtitle,
		ShowLabels: req.ShowLabels,
	})
	if err != nil {
		if KindOf(err) != 0 {
			return nil, err
		}
		return nil, &Error{Kind: KindRender, Op: "render", Err: err}
	}

	return res, nil
}
