package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/acsmap/internal/acs"
	"github.com/sells-group/acsmap/internal/choropleth"
	"github.com/sells-group/acsmap/internal/render"
)

var servePort int

// columnSource lists the estimate columns of a table.
type columnSource interface {
	Group(ctx context.Context, tableID string) (*acs.Group, error)
}

// server answers choropleth requests over HTTP.
type server struct {
	deps       renderDeps
	columns    columnSource
	format     render.Format
	buckets    int
	showLabels bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve choropleths over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		format, err := render.ParseFormat(cfg.Render.Format)
		if err != nil {
			return err
		}
		s := &server{
			deps:       env.deps(),
			columns:    env.ACS,
			format:     format,
			buckets:    cfg.Render.Buckets,
			showLabels: cfg.Render.ShowLabels,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(s, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the HTTP routes.
func buildRouter(s *server, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Acsmap-Column", "X-Acsmap-Regions"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/choropleth/{table}", s.handleChoropleth)
		r.Get("/tables/{table}/columns", s.handleColumns)
		r.Get("/history", s.handleHistory)
	})
	return r
}

func (s *server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobFromQuery(chi.URLParam(r, "table"), r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, out, err := s.deps.run(r.Context(), job)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(job.format))
	if job.format == render.FormatXLSX {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="%s_%s.xlsx"`, job.req.TableID, job.req.Level))
	}
	w.Header().Set("X-Acsmap-Column", res.ColumnName)
	w.Header().Set("X-Acsmap-Regions", strconv.Itoa(len(res.Table)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// jobFromQuery reads level, buckets, labels, column and format from the query
// string. A multi-column table without column aborts the selection.
func (s *server) jobFromQuery(tableID string, r *http.Request) (renderJob, error) {
	const op = "serve: query"
	q := r.URL.Query()

	level, err := choropleth.ParseDetailLevel(q.Get("level"))
	if err != nil {
		return renderJob{}, err
	}

	format := s.format
	if v := q.Get("format"); v != "" {
		if format, err = render.ParseFormat(v); err != nil {
			return renderJob{}, err
		}
	}

	req := choropleth.NewRequest(tableID, level)
	if s.buckets > 0 {
		req.Buckets = s.buckets
	}
	req.ShowLabels = s.showLabels
	if v := q.Get("buckets"); v != "" {
		if req.Buckets, err = strconv.Atoi(v); err != nil {
			return renderJob{}, choropleth.NewInvalidArgumentError(op, eris.Errorf("buckets %q is not a number", v))
		}
	}
	if v := q.Get("labels"); v != "" {
		if req.ShowLabels, err = strconv.ParseBool(v); err != nil {
			return renderJob{}, choropleth.NewInvalidArgumentError(op, eris.Errorf("labels %q is not a boolean", v))
		}
	}
	req.Title = q.Get("title")
	req.Subtitle = q.Get("subtitle")

	var chooser choropleth.Chooser
	if v := q.Get("column"); v != "" {
		col, err := strconv.Atoi(v)
		if err != nil {
			return renderJob{}, choropleth.NewInvalidArgumentError(op, eris.Errorf("column %q is not a number", v))
		}
		if col < 0 {
			return renderJob{}, choropleth.NewInvalidArgumentError(op, eris.Errorf("column %d must be zero or greater", col))
		}
		chooser = choropleth.FixedColumn(col)
	}

	return renderJob{
		req:     req,
		format:  format,
		chooser: chooser,
		output:  "http:" + r.URL.RequestURI(),
	}, nil
}

func (s *server) handleColumns(w http.ResponseWriter, r *http.Request) {
	if s.columns == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "column listing unavailable"})
		return
	}
	g, err := s.columns.Group(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table_id": g.TableID,
		"title":    g.Title,
		"universe": g.Universe,
		"columns":  g.Columns,
	})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "render history disabled"})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative number"})
			return
		}
		limit = n
	}
	runs, err := s.deps.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// statusFor maps a pipeline error kind to an HTTP status.
func statusFor(err error) int {
	switch choropleth.KindOf(err) {
	case choropleth.KindInvalidArgument:
		return http.StatusBadRequest
	case choropleth.KindSelectionAborted:
		return http.StatusUnprocessableEntity
	case choropleth.KindFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := map[string]string{"error": err.Error()}
	if k := choropleth.KindOf(err); k != 0 {
		body["kind"] = k.String()
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func contentType(f render.Format) string {
	switch f {
	case render.FormatGeoJSON:
		return "application/geo+json"
	case render.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain; charset=utf-8"
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("component", "server"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
