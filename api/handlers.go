package api

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gcbaptista/go-letor/config"
	"github.com/gcbaptista/go-letor/internal/logging"
	"github.com/gcbaptista/go-letor/services"
)

// API holds dependencies for API handlers, primarily the dataset engine.
type API struct {
	engine  services.AsyncDatasetOperator
	logger  *logging.Logger
	started time.Time
}

// NewAPI creates a new API handler structure.
func NewAPI(engine services.AsyncDatasetOperator, logger *logging.Logger) *API {
	if logger == nil {
		logger = logging.Noop()
	}
	return &API{engine: engine, logger: logger, started: time.Now()}
}

// RouteOptions carries the optional collaborators of SetupRoutes.
type RouteOptions struct {
	Logger          *logging.Logger
	Registry        *prometheus.Registry // Served on /metrics when set
	MaxRequestBytes int64                // Zero disables the body limit
}

// SetupRoutes defines all the API routes.
func SetupRoutes(router *gin.Engine, engine services.AsyncDatasetOperator, opts RouteOptions) {
	apiHandler := NewAPI(engine, opts.Logger)

	router.Use(RequestIDMiddleware(), RequestLoggingMiddleware(apiHandler.logger), CORSMiddleware())
	if opts.MaxRequestBytes > 0 {
		router.Use(RequestSizeLimitMiddleware(opts.MaxRequestBytes))
	}

	router.GET("/health", apiHandler.HealthCheckHandler)
	if opts.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{Registry: opts.Registry})))
	}

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("", apiHandler.ListJobsHandler)                  // List jobs, filtered by dataset and status
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler)     // Get job performance metrics
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)             // Get job status by ID
		jobRoutes.POST("/:jobId/_cancel", apiHandler.CancelJobHandler) // Request cancellation
	}

	// Dataset operations, all asynchronous
	datasetRoutes := router.Group("/datasets")
	{
		datasetRoutes.POST("/_split", apiHandler.SplitHandler)
		datasetRoutes.POST("/_fold", apiHandler.FoldHandler)
		datasetRoutes.POST("/_transform", apiHandler.TransformHandler)
		datasetRoutes.POST("/_train", apiHandler.TrainHandler)
	}
}

// SplitHandler starts a train/test/validation split.
// Request Body: config.SplitSettings
func (api *API) SplitHandler(c *gin.Context) {
	var settings config.SplitSettings
	if !bindJSON(c, &settings) {
		return
	}
	if result := ValidateSplitRequest(&settings); result.HasErrors() {
		SendStructuredValidationError(c, result)
		return
	}

	jobID, err := api.engine.SplitAsync(settings)
	if err != nil {
		SendOperationError(c, "split", err)
		return
	}
	sendAccepted(c, "Split", settings.Input, jobID)
}

// FoldHandler starts a K-fold partition.
// Request Body: config.FoldSettings
func (api *API) FoldHandler(c *gin.Context) {
	settings := config.NewFoldSettings()
	if !bindJSON(c, &settings) {
		return
	}
	if result := ValidateFoldRequest(&settings); result.HasErrors() {
		SendStructuredValidationError(c, result)
		return
	}

	jobID, err := api.engine.FoldAsync(settings)
	if err != nil {
		SendOperationError(c, "fold", err)
		return
	}
	sendAccepted(c, "Fold", settings.Input, jobID)
}

// TransformHandler starts a CSV to LETOR conversion.
// Request Body: config.TransformSettings
func (api *API) TransformHandler(c *gin.Context) {
	var settings config.TransformSettings
	if !bindJSON(c, &settings) {
		return
	}
	if result := ValidateTransformRequest(&settings); result.HasErrors() {
		SendStructuredValidationError(c, result)
		return
	}

	jobID, err := api.engine.TransformAsync(settings)
	if err != nil {
		SendOperationError(c, "transform", err)
		return
	}
	sendAccepted(c, "Transform", settings.Input, jobID)
}

// TrainHandler starts a fit and evaluation round trip.
// Request Body: config.TrainSettings
func (api *API) TrainHandler(c *gin.Context) {
	var settings config.TrainSettings
	if !bindJSON(c, &settings) {
		return
	}
	if result := ValidateTrainRequest(&settings); result.HasErrors() {
		SendStructuredValidationError(c, result)
		return
	}

	jobID, err := api.engine.TrainAsync(settings)
	if err != nil {
		SendOperationError(c, "train", err)
		return
	}
	sendAccepted(c, "Training", settings.Train, jobID)
}

// HealthCheckHandler provides a simple health check endpoint
func (api *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "go-letor",
		"uptime":    time.Since(api.started).Round(time.Second).String(),
		"timestamp": time.Now().Unix(),
	})
}

// bindJSON decodes the request body and answers the request on failure.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		SendRequestTooLargeError(c, tooLarge.Limit)
		return false
	}
	SendInvalidJSONError(c, err)
	return false
}

func sendAccepted(c *gin.Context, operation, dataset, jobID string) {
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": operation + " started for '" + dataset + "'",
		"job_id":  jobID,
	})
}
