package main

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/choropleth"
	"github.com/sells-group/acsmap/internal/history"
	"github.com/sells-group/acsmap/internal/render"
)

// renderDeps are the collaborators one render needs. The CLI and the HTTP
// server both go through run.
type renderDeps struct {
	fetcher   choropleth.Fetcher
	features  render.FeatureSource
	palette   render.Palette
	history   history.Store
	normalize []choropleth.NormalizeOption
}

// renderJob is one render invocation.
type renderJob struct {
	req     choropleth.Request
	format  render.Format
	chooser choropleth.Chooser
	output  string // recorded in history only
}

// run renders job into memory and returns the artifact. Nothing is returned
// unless every stage succeeded.
func (d renderDeps) run(ctx context.Context, job renderJob) (*choropleth.Result, []byte, error) {
	var buf bytes.Buffer
	r, err := render.New(job.format, &buf, render.Options{Palette: d.palette, Features: d.features})
	if err != nil {
		return nil, nil, err
	}

	run := d.start(ctx, job)
	p := choropleth.New(d.fetcher, job.chooser, r, choropleth.WithNormalizeOptions(d.normalize...))
	res, err := p.RenderChoropleth(ctx, job.req)
	d.finish(ctx, run, res, err)
	if err != nil {
		return nil, nil, err
	}
	return res, buf.Bytes(), nil
}

func (d renderDeps) start(ctx context.Context, job renderJob) *history.Run {
	if d.history == nil {
		return nil
	}
	run, err := d.history.Start(ctx, history.StartParams{
		TableID: job.req.TableID,
		Level:   job.req.Level.String(),
		Buckets: job.req.Buckets,
		Format:  string(job.format),
		Output:  job.output,
	})
	if err != nil {
		zap.L().Warn("history: start run", zap.Error(err))
		return nil
	}
	return run
}

func (d renderDeps) finish(ctx context.Context, run *history.Run, res *choropleth.Result, renderErr error) {
	if run == nil {
		return
	}
	// Record the outcome even when the request context was cancelled.
	ctx = context.WithoutCancel(ctx)

	var err error
	if renderErr != nil {
		err = d.history.Fail(ctx, run.ID, renderErr)
	} else {
		err = d.history.Complete(ctx, run.ID, res.ColumnName, len(res.Table))
	}
	if err != nil {
		zap.L().Warn("history: finish run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
