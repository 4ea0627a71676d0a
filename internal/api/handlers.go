package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
	"github.com/K11E3R/moroccan-education-API/internal/logger"
	"github.com/K11E3R/moroccan-education-API/internal/server"
)

const (
	defaultLimit = 100
	maxLimit     = 1000

	statusOperational = "operational"
	dataSource        = "Public Moroccan Education Websites"
)

// Options configures Handler.
type Options struct {
	Name         string
	Version      string
	DefaultLimit int
	MaxLimit     int

	// Cache, when set, serves list and search responses for CacheTTL.
	Cache         Cache
	CacheTTL      time.Duration
	CacheObserver CacheObserver

	// HealthChecks are reported by /health.
	HealthChecks map[string]server.HealthChecker
	// MetricsHandler, when set, is mounted at /metrics.
	MetricsHandler http.Handler
}

// Handler serves the API routes from a Store.
type Handler struct {
	store  *Store
	opts   Options
	logger logger.Interface
}

// NewHandler creates a handler over store.
func NewHandler(store *Store, opts Options, log logger.Interface) *Handler {
	if store == nil {
		store = NewStore(nil)
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	if opts.Name == "" {
		opts.Name = "Moroccan Education API"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = maxLimit
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = min(defaultLimit, opts.MaxLimit)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Handler{store: store, opts: opts, logger: log.WithComponent("api")}
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/health", h.health)
	if h.opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(h.opts.MetricsHandler))
	}

	v1 := r.Group("/api/v1")
	cached := v1.Group("")
	if h.opts.Cache != nil {
		cached.Use(cacheMiddleware(h.opts.Cache, h.opts.CacheTTL, h.store.Version(), h.opts.CacheObserver, h.logger))
	}

	cached.GET("/levels", h.listLevels)
	v1.GET("/levels/:id", h.getLevel)
	cached.GET("/subjects", h.listSubjects)
	v1.GET("/subjects/:id", h.getSubject)
	cached.GET("/content", h.listContent)
	cached.GET("/courses", h.listContent)
	v1.GET("/content/:id", h.getContent)
	cached.GET("/search", h.search)
	v1.GET("/stats", h.stats)

	r.NoRoute(func(c *gin.Context) {
		server.AbortWithError(c, http.StatusNotFound, server.CodeNotFound, "Route not found")
	})
}

func (h *Handler) root(c *gin.Context) {
	meta := h.store.Metadata()
	c.JSON(http.StatusOK, gin.H{
		"message":     h.opts.Name,
		"description": "Free API for Moroccan education data",
		"version":     h.opts.Version,
		"endpoints": gin.H{
			"levels":   "/api/v1/levels",
			"subjects": "/api/v1/subjects",
			"content":  "/api/v1/content",
			"courses":  "/api/v1/courses",
			"stats":    "/api/v1/stats",
			"search":   "/api/v1/search",
			"health":   "/health",
		},
		"status":      statusOperational,
		"data_source": dataSource,
		"source":      h.store.Source(),
		"last_update": h.lastUpdate(),
		"total_items": meta.TotalItems,
	})
}

func (h *Handler) health(c *gin.Context) {
	status, results := server.RunChecks(c.Request.Context(), h.opts.HealthChecks)
	resp := HealthResponse{
		Status:     string(status),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		DataLoaded: h.store.DataLoaded(),
	}
	if len(results) > 0 {
		resp.Checks = make(map[string]any, len(results))
		for name, r := range results {
			resp.Checks[name] = r
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listLevels(c *gin.Context) {
	limit, offset, ok := h.pagination(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newList(h.store.Levels(), limit, offset))
}

func (h *Handler) getLevel(c *gin.Context) {
	level, ok := h.store.Level(c.Param("id"))
	if !ok {
		server.AbortWithError(c, http.StatusNotFound, server.CodeNotFound, "Level not found")
		return
	}
	c.JSON(http.StatusOK, ItemResponse[*domain.Level]{Success: true, Data: level})
}

func (h *Handler) listSubjects(c *gin.Context) {
	limit, offset, ok := h.pagination(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newList(h.store.Subjects(c.Query("level_id")), limit, offset))
}

func (h *Handler) getSubject(c *gin.Context) {
	subject, ok := h.store.Subject(c.Param("id"))
	if !ok {
		server.AbortWithError(c, http.StatusNotFound, server.CodeNotFound, "Subject not found")
		return
	}
	c.JSON(http.StatusOK, ItemResponse[*domain.Subject]{Success: true, Data: subject})
}

func (h *Handler) listContent(c *gin.Context) {
	limit, offset, ok := h.pagination(c)
	if !ok {
		return
	}

	filter := ContentFilter{
		LevelID:   c.Query("level_id"),
		SubjectID: c.Query("subject_id"),
	}
	if raw := c.Query("content_type"); raw != "" {
		ct := domain.Category(raw)
		if !ct.IsContent() {
			server.AbortWithError(c, http.StatusBadRequest, server.CodeBadRequest,
				"content_type must be one of course, exercise, control, exam, correction")
			return
		}
		filter.ContentType = ct
	}

	c.JSON(http.StatusOK, newList(h.store.Content(filter), limit, offset))
}

func (h *Handler) getContent(c *gin.Context) {
	item, ok := h.store.ContentItem(c.Param("id"))
	if !ok {
		server.AbortWithError(c, http.StatusNotFound, server.CodeNotFound, "Content not found")
		return
	}
	c.JSON(http.StatusOK, ItemResponse[*domain.ContentItem]{Success: true, Data: item})
}

func (h *Handler) search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		server.AbortWithError(c, http.StatusBadRequest, server.CodeBadRequest, "query parameter q is required")
		return
	}

	scope := c.Query("type")
	if !validScope(scope) {
		server.AbortWithError(c, http.StatusBadRequest, server.CodeBadRequest,
			"type must be one of levels, subjects, content, courses, all")
		return
	}

	language := c.DefaultQuery("language", LanguageFrench)
	if language != LanguageFrench && language != LanguageArabic {
		server.AbortWithError(c, http.StatusBadRequest, server.CodeBadRequest, "language must be fr or ar")
		return
	}

	results := h.store.Search(q, scope, language)
	c.JSON(http.StatusOK, SearchResponse{
		Success:      true,
		Query:        q,
		Language:     language,
		TotalResults: results.Total(),
		Results:      results,
	})
}

func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, ItemResponse[Stats]{
		Success: true,
		Data: Stats{
			Metadata:   h.store.Metadata(),
			LastUpdate: h.lastUpdate(),
			DataSource: dataSource,
			APIVersion: h.opts.Version,
			Status:     statusOperational,
		},
	})
}

func (h *Handler) lastUpdate() string {
	date := h.store.CollectionDate()
	if date.IsZero() {
		return "N/A"
	}
	return date.String()
}

// pagination parses limit and offset. It writes a 400 and returns false on
// malformed values.
func (h *Handler) pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit = h.opts.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			server.AbortWithError(c, http.StatusBadRequest, server.CodeBadRequest, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = min(n, h.opts.MaxLimit)
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			server.AbortWithError(c, http.StatusBadRequest, server.CodeBadRequest, "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
