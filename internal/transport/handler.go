package transport

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/config"
	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/observer"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/saliency"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/service"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/storage"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version is reported by /health. The CLI overrides it at startup.
var Version = "dev"

// imageField is the multipart field carrying an upload.
const imageField = "image"

type handler struct {
	svc     service.DiagnosisService
	metrics *observer.MetricsObserver
	cfg     *config.Config
}

// NewHandler builds the gin router for the diagnosis API. metrics may be nil,
// in which case /metrics is not registered.
func NewHandler(svc service.DiagnosisService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, metrics: metrics, cfg: cfg}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/model", h.describeModel)
	if metrics != nil {
		r.GET("/metrics", h.getMetrics)
	}
	r.POST("/diagnose", h.diagnose)
	r.POST("/quality", h.assessQuality)
	r.POST("/heatmap", h.renderHeatmap)

	return r
}

func (h *handler) diagnose(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	opts := service.DiagnoseOptions{
		Heatmap:       queryBool(c, "heatmap"),
		SkipLeafCheck: queryBool(c, "skip_leaf_check"),
	}

	var (
		resp *models.DiagnosisResponse
		err  error
	)
	if isMultipart(c) {
		var img image.Image
		img, err = h.readUpload(c)
		if err != nil {
			respondError(c, err)
			return
		}
		opts.Source = "upload"
		resp, err = h.svc.DiagnoseImage(ctx, img, opts)
	} else {
		var req models.DiagnosisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("Request must be a multipart image upload or JSON with a url", err))
			return
		}
		opts.Heatmap = opts.Heatmap || req.Heatmap
		opts.SkipLeafCheck = opts.SkipLeafCheck || req.SkipLeafCheck
		resp, err = h.svc.DiagnoseSource(ctx, req.URL, opts)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable) {
			err = apperrors.NewTimeoutError("Diagnosis did not finish in time", err)
		}
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Outcome != models.DecisionAccepted {
		status = http.StatusUnprocessableEntity
	}
	logger.WithFields(logrus.Fields{
		"diagnosis_id": resp.ID,
		"outcome":      resp.Outcome,
		"label":        resp.Label,
		"confidence":   resp.Confidence,
		"mode":         resp.Mode,
	}).Info("Diagnosis completed")

	c.JSON(status, resp)
}

func (h *handler) assessQuality(c *gin.Context) {
	img, err := h.readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.svc.AssessQuality(c.Request.Context(), img)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) renderHeatmap(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	img, err := h.readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	overlay, err := h.svc.RenderHeatmap(ctx, img)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := saliency.EncodePNG(overlay)
	if err != nil {
		respondError(c, apperrors.NewInternalError("Failed to encode heatmap", err))
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (h *handler) describeModel(c *gin.Context) {
	info, err := h.svc.DescribeModel()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handler) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// readUpload decodes the multipart image field.
func (h *handler) readUpload(c *gin.Context) (image.Image, error) {
	if c.Request.ContentLength > h.cfg.MaxRequestBodySize {
		return nil, tooLarge(fmt.Errorf("content length %d exceeds %d", c.Request.ContentLength, h.cfg.MaxRequestBodySize))
	}
	fh, err := c.FormFile(imageField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge(err)
		}
		return nil, apperrors.NewValidationError(fmt.Sprintf("Multipart field %q with an image is required", imageField), err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("Uploaded file could not be opened", err)
	}
	defer f.Close()

	img, format, err := storage.DecodeImage(f, h.cfg.MaxRequestBodySize)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return nil, tooLarge(err)
	case err != nil:
		return nil, apperrors.NewValidationError("Uploaded file is not a supported image", err)
	}
	logger.WithFields(logrus.Fields{
		"filename": fh.Filename,
		"format":   format,
		"size":     fh.Size,
	}).Debug("Upload decoded")
	return img, nil
}

func tooLarge(err error) *apperrors.AppError {
	appErr := apperrors.NewValidationError("Image exceeds the upload limit", err)
	appErr.StatusCode = http.StatusRequestEntityTooLarge
	return appErr
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

func queryBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}).Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)

	body := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
	}
	if appErr, ok := apperrors.As(err); ok {
		body.Type = string(appErr.Type)
		body.Message = appErr.Message
		if appErr.Details != "" {
			body.Message = fmt.Sprintf("%s (%s)", appErr.Message, appErr.Details)
		}
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, body)
}
