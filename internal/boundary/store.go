package boundary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/acsmap/internal/choropleth"
	"github.com/sells-group/acsmap/internal/fetcher"
	"github.com/sells-group/acsmap/internal/resilience"
)

const (
	// DefaultBaseURL is the root of the cartographic boundary file tree.
	DefaultBaseURL = "https://www2.census.gov/geo/tiger"
	// DefaultYear is the boundary vintage.
	DefaultYear = 2023
)

// shapefileParts are the archive members needed to read shapes and attributes.
var shapefileParts = []string{".shp", ".shx", ".dbf"}

// Option configures a Store.
type Option func(*Store)

// WithBaseURL overrides the boundary file root.
func WithBaseURL(u string) Option {
	return func(s *Store) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithYear sets the boundary vintage.
func WithYear(year int) Option {
	return func(s *Store) {
		if year > 0 {
			s.year = year
		}
	}
}

// WithRetryPolicy sets the policy for re-downloading an archive that fails to
// extract. Transport failures are retried by the fetcher, not here.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(s *Store) {
		s.retry = p
	}
}

// Store keeps boundary archives in a local directory, downloading them on first
// use.
type Store struct {
	f       fetcher.Fetcher
	dir     string
	baseURL string
	year    int
	retry   resilience.Policy
	sf      singleflight.Group
}

// NewStore creates a Store rooted at dir.
func NewStore(f fetcher.Fetcher, dir string, opts ...Option) *Store {
	s := &Store{
		f:       f,
		dir:     dir,
		baseURL: DefaultBaseURL,
		year:    DefaultYear,
		retry:   resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.Retryable == nil {
		s.retry.Retryable = isCorruptArchive
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("boundary", "ensure")
	}
	return s
}

// Year returns the boundary vintage.
func (s *Store) Year() int { return s.year }

// Features returns the boundary shapes for level, downloading the archive
// first if it is not on disk.
func (s *Store) Features(ctx context.Context, level choropleth.DetailLevel) ([]Feature, error) {
	product, err := ProductFor(level)
	if err != nil {
		return nil, err
	}
	shpPath, err := s.Ensure(ctx, product)
	if err != nil {
		return nil, err
	}
	return ReadShapefile(shpPath, product)
}

// Ensure makes sure the product's shapefile is extracted locally and returns
// the .shp path. Concurrent calls for one product share a single download. A
// corrupt archive is deleted and fetched again.
func (s *Store) Ensure(ctx context.Context, product Product) (string, error) {
	name := product.FileName(s.year)
	shpPath := filepath.Join(s.dir, name, name+".shp")
	if allPartsExist(shpPath) {
		return shpPath, nil
	}

	v, err, shared := s.sf.Do(name, func() (any, error) {
		return s.ensure(ctx, product)
	})
	if err != nil {
		return "", err
	}
	if shared {
		zap.L().Debug("boundary download shared", zap.String("component", "boundary"), zap.String("file", name))
	}
	return v.(string), nil
}

func (s *Store) ensure(ctx context.Context, product Product) (string, error) {
	name := product.FileName(s.year)
	log := zap.L().With(zap.String("component", "boundary"), zap.String("file", name))

	extractDir := filepath.Join(s.dir, name)
	shpPath := filepath.Join(extractDir, name+".shp")
	if allPartsExist(shpPath) {
		log.Debug("boundary shapefile already extracted")
		return shpPath, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "boundary: create dir")
	}
	zipPath := filepath.Join(s.dir, name+".zip")
	url := product.URL(s.baseURL, s.year)

	return resilience.DoVal(ctx, s.retry, func(ctx context.Context) (string, error) {
		if info, err := os.Stat(zipPath); err != nil || info.Size() == 0 {
			log.Info("downloading boundary file", zap.String("url", url))
			if err := s.download(ctx, url, zipPath); err != nil {
				return "", eris.Wrapf(err, "boundary: download %s", name)
			}
		}

		if err := extractInto(zipPath, extractDir, shpPath); err != nil {
			log.Warn("corrupt boundary archive, removing", zap.Error(err))
			_ = os.Remove(zipPath)
			return "", &corruptArchiveError{err: eris.Wrapf(err, "boundary: extract %s", name)}
		}
		return shpPath, nil
	})
}

// download writes url to a temporary file next to dest and renames it into
// place, so dest is either absent or a complete response body.
func (s *Store) download(ctx context.Context, url, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*.part")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if _, err := s.f.DownloadToFile(ctx, url, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "rename download")
	}
	return nil
}

// extractInto unpacks the shapefile parts into a temporary directory and
// renames it to extractDir once every part is present.
func extractInto(zipPath, extractDir, shpPath string) error {
	parent := filepath.Dir(extractDir)
	tmpDir, err := os.MkdirTemp(parent, "."+filepath.Base(extractDir)+"-*")
	if err != nil {
		return eris.Wrap(err, "create temp dir")
	}
	defer os.RemoveAll(tmpDir) //nolint:errcheck

	extracted, err := fetcher.ExtractZIPMatching(zipPath, tmpDir, shapefileParts...)
	if err != nil {
		return err
	}
	if fetcher.FindByExt(extracted, ".shp") == "" {
		return eris.Errorf("no .shp file in %s", filepath.Base(zipPath))
	}
	if !allPartsExist(filepath.Join(tmpDir, filepath.Base(shpPath))) {
		return eris.Errorf("archive is missing %s parts", filepath.Base(shpPath))
	}

	// An earlier interrupted run can leave a partial directory behind.
	if err := os.RemoveAll(extractDir); err != nil {
		return eris.Wrap(err, "remove stale extraction")
	}
	if err := os.Rename(tmpDir, extractDir); err != nil {
		// Another process may have finished the same product first.
		if allPartsExist(shpPath) {
			return nil
		}
		return eris.Wrap(err, "rename extraction")
	}
	return nil
}

// corruptArchiveError marks an archive that downloaded but could not be
// extracted. It is the only failure the store retries; the fetcher already
// retries transport errors.
type corruptArchiveError struct {
	err error
}

func (e *corruptArchiveError) Error() string { return e.err.Error() }

func (e *corruptArchiveError) Unwrap() error { return e.err }

func isCorruptArchive(err error) bool {
	var ce *corruptArchiveError
	return errors.As(err, &ce)
}

// Prefetch downloads the archives for several levels concurrently.
func (s *Store) Prefetch(ctx context.Context, levels ...choropleth.DetailLevel) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, level := range levels {
		product, err := ProductFor(level)
		if err != nil {
			return err
		}
		g.Go(func() error {
			_, err := s.Ensure(gctx, product)
			return err
		})
	}
	return g.Wait()
}

func allPartsExist(shpPath string) bool {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range shapefileParts {
		info, err := os.Stat(base + ext)
		if err != nil || info.Size() == 0 {
			return false
		}
	}
	return true
}
