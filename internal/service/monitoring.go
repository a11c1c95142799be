package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/publish-studio/internal/models"
)

const metricsNamespace = "publish_studio"

// MonitoringService records error logs to the database and exposes
// Prometheus metrics for adapter calls and queue activity.
type MonitoringService struct {
	db     *gorm.DB
	logger *zap.Logger

	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	queueEvents *prometheus.CounterVec
}

func NewMonitoringService(db *gorm.DB, logger *zap.Logger) *MonitoringService {
	m := &MonitoringService{
		db:       db,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "platform_operations_total",
			Help:      "Adapter create and update calls by platform and result.",
		}, []string{"operation", "platform", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "platform_operation_duration_seconds",
			Help:      "Duration of adapter calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "platform"}),
		queueEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "queue_events_total",
			Help:      "Delayed job queue events.",
		}, []string{"event"}),
	}

	m.registry.MustRegister(
		m.operations,
		m.durations,
		m.queueEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOutcome counts one adapter call. result is success, error or skipped.
func (m *MonitoringService) ObserveOutcome(operation string, platform models.PlatformName, result string, elapsed time.Duration) {
	m.operations.WithLabelValues(operation, platform.String(), result).Inc()
	if elapsed > 0 {
		m.durations.WithLabelValues(operation, platform.String()).Observe(elapsed.Seconds())
	}
}

// ObserveQueue implements queue.Observer.
func (m *MonitoringService) ObserveQueue(event string) {
	m.queueEvents.WithLabelValues(event).Inc()
}

// Handler serves the metrics registry.
func (m *MonitoringService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordError 记录错误日志
func (m *MonitoringService) RecordError(ctx context.Context, level, source, title, message string, options ...ErrorLogOption) error {
	errorLog := &models.ErrorLog{
		Level:   level,
		Source:  source,
		Title:   title,
		Message: message,
	}

	for _, option := range options {
		option(errorLog)
	}

	if err := m.db.WithContext(ctx).Create(errorLog).Error; err != nil {
		m.logger.Error("Failed to record error log", zap.String("title", title), zap.Error(err))
		return err
	}
	return nil
}

// GetRecentErrors 获取最近的错误日志
func (m *MonitoringService) GetRecentErrors(ctx context.Context, limit int) ([]models.ErrorLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var errors []models.ErrorLog
	err := m.db.WithContext(ctx).Where("resolved = ?", false).
		Order("created_at DESC").
		Limit(limit).
		Find(&errors).Error
	return errors, err
}

// CleanupOldData removes error logs older than daysToKeep days.
func (m *MonitoringService) CleanupOldData(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	result := m.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ErrorLog{})
	return result.RowsAffected, result.Error
}

// ErrorLogOption 错误日志选项
type ErrorLogOption func(*models.ErrorLog)

// WithPlatform 设置平台名称
func WithPlatform(platform models.PlatformName) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.PlatformName = platform
	}
}

// WithProject 设置项目ID
func WithProject(projectID string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.ProjectID = projectID
	}
}

// WithStackTrace 设置堆栈信息
func WithStackTrace(stackTrace string) ErrorLogOption {
	return func(e *models.ErrorLog) {
		e.StackTrace = stackTrace
	}
}

// WithContext 设置上下文信息
func WithContext(context map[string]any) ErrorLogOption {
	return func(e *models.ErrorLog) {
		if contextBytes, err := json.Marshal(context); err == nil {
			e.Context = string(contextBytes)
		}
	}
}
