package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/quake-etl/internal/cache"
	"github.com/mr1hm/quake-etl/internal/logging"
	"github.com/mr1hm/quake-etl/internal/models"
	"github.com/mr1hm/quake-etl/internal/repository"
)

const maxHistogramBins = 200

// Repository is the read side the dashboard needs. repository.Store
// implements it.
type Repository interface {
	FilterOptions(ctx context.Context) (*repository.FilterOptions, error)
	KPIs(ctx context.Context, f repository.Filter) (*repository.KPIs, error)
	YearlyCounts(ctx context.Context) ([]repository.YearCount, error)
	MagnitudeHistogram(ctx context.Context, f repository.Filter, bins int) ([]repository.HistogramBin, error)
	ListEarthquakes(ctx context.Context, f repository.Filter, limit int) ([]models.Earthquake, error)
	RunInsight(ctx context.Context, name string) (*repository.Result, error)
}

type Handler struct {
	repo  Repository
	cache cache.Cache
}

// NewHandler serves repo through c. A nil cache disables caching.
func NewHandler(repo Repository, c cache.Cache) *Handler {
	if c == nil {
		c = cache.Noop{}
	}
	return &Handler{
		repo:  repo,
		cache: c,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.GET("/filters", h.getFilters)
	api.GET("/kpis", h.getKPIs)
	api.GET("/stats/yearly", h.getYearly)
	api.GET("/stats/magnitudes", h.getMagnitudes)
	api.GET("/earthquakes", h.getEarthquakes)
	api.GET("/insights", h.listInsights)
	api.GET("/insights/:name", h.getInsight)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getFilters(c *gin.Context) {
	opts, err := cached(c, h.cache, cache.Key("filters"), h.repo.FilterOptions)
	if err != nil {
		serverError(c, "failed to load filters", err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *Handler) getKPIs(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	kpis, err := cached(c, h.cache, cache.Key("kpis", filterKey(filter)), func(ctx context.Context) (*repository.KPIs, error) {
		return h.repo.KPIs(ctx, filter)
	})
	if err != nil {
		serverError(c, "failed to compute kpis", err)
		return
	}
	c.JSON(http.StatusOK, kpis)
}

func (h *Handler) getYearly(c *gin.Context) {
	counts, err := cached(c, h.cache, cache.Key("yearly"), h.repo.YearlyCounts)
	if err != nil {
		serverError(c, "failed to count earthquakes per year", err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *Handler) getMagnitudes(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	bins := repository.DefaultHistogramBins
	if b := c.Query("bins"); b != "" {
		n, err := strconv.Atoi(b)
		if err != nil || n < 1 || n > maxHistogramBins {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bins must be between 1 and 200"})
			return
		}
		bins = n
	}

	key := cache.Key("magnitudes", filterKey(filter), strconv.Itoa(bins))
	hist, err := cached(c, h.cache, key, func(ctx context.Context) ([]repository.HistogramBin, error) {
		return h.repo.MagnitudeHistogram(ctx, filter, bins)
	})
	if err != nil {
		serverError(c, "failed to build magnitude histogram", err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

// getEarthquakes serves the map points and the data preview as GeoJSON.
func (h *Handler) getEarthquakes(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}

	limit := repository.DefaultPreviewLimit
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= repository.MaxPreviewLimit {
			limit = lim
		}
	}

	quakes, err := h.repo.ListEarthquakes(c.Request.Context(), filter, limit)
	if err != nil {
		serverError(c, "failed to fetch earthquakes", err)
		return
	}

	fc := toGeoJSON(quakes)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) listInsights(c *gin.Context) {
	c.JSON(http.StatusOK, repository.Insights())
}

func (h *Handler) getInsight(c *gin.Context) {
	name := c.Param("name")

	in, err := repository.LookupInsight(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown insight", "insight": name})
		return
	}
	if !in.Supported() {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":           "insight needs columns the earthquakes table does not have",
			"insight":         name,
			"missing_columns": in.Missing,
		})
		return
	}

	res, err := cached(c, h.cache, cache.Key("insight", name), func(ctx context.Context) (*repository.Result, error) {
		return h.repo.RunInsight(ctx, name)
	})
	switch {
	case errors.Is(err, repository.ErrUnknownInsight):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown insight", "insight": name})
	case errors.Is(err, repository.ErrUnsupportedInsight):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error(), "insight": name})
	case err != nil:
		slog.Error("insight failed", logging.Insight(name), logging.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run insight", "insight": name})
	default:
		c.JSON(http.StatusOK, res)
	}
}

// parseFilter reads ?year= and repeated ?country=. It writes a 400 and
// returns false on a malformed year.
func parseFilter(c *gin.Context) (repository.Filter, bool) {
	var f repository.Filter
	if y := c.Query("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
			return f, false
		}
		f.Year = &year
	}
	for _, country := range c.QueryArray("country") {
		if country != "" {
			f.Countries = append(f.Countries, country)
		}
	}
	return f, true
}

// filterKey encodes the filter so that distinct country lists never share
// a key, e.g. "Chile,Japan" versus "Chile" and "Japan".
func filterKey(f repository.Filter) string {
	q := url.Values{}
	if f.Year != nil {
		q.Set("year", strconv.Itoa(*f.Year))
	}
	countries := slices.Clone(f.Countries)
	slices.Sort(countries)
	for _, country := range countries {
		q.Add("country", country)
	}
	return q.Encode()
}

// cached serves key from c when present, otherwise loads and stores it.
// Cache failures are logged and never fail the request.
func cached[T any](gc *gin.Context, c cache.Cache, key string, load func(context.Context) (T, error)) (T, error) {
	ctx := gc.Request.Context()

	var v T
	hit, err := c.Get(ctx, key, &v)
	if err != nil {
		slog.Warn("cache read failed", slog.String("key", key), logging.Error(err))
	}
	if hit {
		return v, nil
	}

	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		slog.Warn("cache write failed", slog.String("key", key), logging.Error(err))
	}
	return v, nil
}

func serverError(c *gin.Context, msg string, err error) {
	slog.Error(msg, logging.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
