package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ReOpAu/react-starter-kit-sub002/internal/adapters/cache"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/entities"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/domain/providers"
	"github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Timed operations
const (
	OperationSearch      = "search"
	OperationSelection   = "selection"
	OperationShowOptions = "showOptions"
)

var timedOperations = []string{OperationSearch, OperationSelection, OperationShowOptions}

// Severity ratio boundaries
const (
	warningRatio  = 2.0
	criticalRatio = 5.0
)

// OperationStats accumulates duration samples for one operation
type OperationStats struct {
	Count   int64   `json:"count"`
	TotalMs float64 `json:"totalMs"`
}

// AverageMs returns the mean sample duration
func (s OperationStats) AverageMs() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.TotalMs / float64(s.Count)
}

// TelemetrySnapshot is a copy of the monitor's counters
type TelemetrySnapshot struct {
	Operations      map[string]OperationStats `json:"operations"`
	TotalOperations int64                     `json:"totalOperations"`
	ErrorCount      int64                     `json:"errorCount"`
	ErrorRate       float64                   `json:"errorRate"`
	CacheHitRate    float64                   `json:"cacheHitRate"`
}

// cacheStats is the part of the result cache the monitor reads
type cacheStats interface {
	Metrics() cache.CacheMetrics
	ResetMetrics()
}

// SeverityForRatio scores how far an observed value is past its threshold
func SeverityForRatio(ratio float64) entities.Severity {
	switch {
	case ratio >= criticalRatio:
		return entities.SeverityCritical
	case ratio >= warningRatio:
		return entities.SeverityWarning
	default:
		return entities.SeverityInfo
	}
}

// TelemetryMonitor keeps per-operation timing and error counters and raises
// threshold alerts with per-type cooldown.
type TelemetryMonitor struct {
	mu         sync.Mutex
	cfg        entities.AlertConfig
	maxOps     int64
	ops        map[string]*OperationStats
	errorCount int64
	lastAlert  map[entities.AlertType]time.Time

	cache   cacheStats
	onAlert providers.AlertSink
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewTelemetryMonitor creates a monitor. onAlert and metrics may be nil.
func NewTelemetryMonitor(cfg entities.AlertConfig, maxOperationsBeforeReset int, cacheStats cacheStats, onAlert providers.AlertSink, logger zerolog.Logger, metrics *observability.Metrics) *TelemetryMonitor {
	m := &TelemetryMonitor{
		cfg:       cfg,
		maxOps:    int64(maxOperationsBeforeReset),
		lastAlert: make(map[entities.AlertType]time.Time),
		cache:     cacheStats,
		onAlert:   onAlert,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
	m.resetCounters()
	return m
}

// RecordOperation adds a duration sample and runs the alert checks
func (m *TelemetryMonitor) RecordOperation(ctx context.Context, operation string, duration time.Duration, failed bool) {
	durationMs := float64(duration) / float64(time.Millisecond)

	m.mu.Lock()
	stats, ok := m.ops[operation]
	if !ok {
		stats = &OperationStats{}
		m.ops[operation] = stats
	}
	stats.Count++
	stats.TotalMs += durationMs
	if failed {
		m.errorCount++
	}
	alerts := m.checkAlerts(operation, durationMs)
	m.mu.Unlock()

	observability.RecordOperation(ctx, m.metrics, operation, durationMs, failed)
	for _, alert := range alerts {
		m.deliver(ctx, alert)
	}
}

// Snapshot returns the current counters
func (m *TelemetryMonitor) Snapshot() TelemetrySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Reset zeroes every counter and the cache metrics. Cooldown history is kept.
func (m *TelemetryMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetCounters()
	if m.cache != nil {
		m.cache.ResetMetrics()
	}
}

// checkAlerts must be called with mu held
func (m *TelemetryMonitor) checkAlerts(operation string, durationMs float64) []entities.AlertEvent {
	var alerts []entities.AlertEvent
	add := func(alert *entities.AlertEvent) {
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	if threshold := m.cfg.SlowOperationThresholdMs; threshold > 0 && durationMs > threshold {
		add(m.raise(entities.AlertTypeSlowOperation, SeverityForRatio(durationMs/threshold), threshold, durationMs, operation, map[string]any{
			"durationMs": durationMs,
		}))
	}

	total := m.totalLocked()
	if total < int64(m.cfg.MinOperationsForAlert) {
		return alerts
	}

	if m.cache != nil {
		cm := m.cache.Metrics()
		if cm.Lookups() > 0 && cm.HitRate < m.cfg.LowCacheHitRateThreshold {
			ratio := math.Inf(1)
			if cm.HitRate > 0 {
				ratio = m.cfg.LowCacheHitRateThreshold / cm.HitRate
			}
			add(m.raise(entities.AlertTypeLowCacheHitRate, SeverityForRatio(ratio), m.cfg.LowCacheHitRateThreshold, cm.HitRate, "", map[string]any{
				"hits":   cm.Hits,
				"misses": cm.Misses,
			}))
		}
	}

	errorRate := float64(m.errorCount) / float64(total)
	if threshold := m.cfg.HighErrorRateThreshold; threshold > 0 && errorRate > threshold {
		add(m.raise(entities.AlertTypeHighErrorRate, SeverityForRatio(errorRate/threshold), threshold, errorRate, "", map[string]any{
			"errorCount":      m.errorCount,
			"totalOperations": total,
		}))
	}

	if m.maxOps > 0 && total >= m.maxOps {
		snapshot := m.snapshotLocked()
		m.resetCounters()
		if m.cache != nil {
			m.cache.ResetMetrics()
		}
		add(m.raise(entities.AlertTypeMetricsReset, entities.SeverityInfo, float64(m.maxOps), float64(total), "", map[string]any{
			"snapshot": snapshot,
		}))
	}

	return alerts
}

// raise applies the cooldown and returns nil when the alert is suppressed.
// metrics_reset is never suppressed.
func (m *TelemetryMonitor) raise(alertType entities.AlertType, severity entities.Severity, threshold, actual float64, operation string, alertCtx map[string]any) *entities.AlertEvent {
	now := m.now()
	if alertType != entities.AlertTypeMetricsReset {
		if last, ok := m.lastAlert[alertType]; ok && now.Sub(last) < m.cfg.Cooldown() {
			return nil
		}
	}
	m.lastAlert[alertType] = now

	return &entities.AlertEvent{
		ID:        uuid.New().String(),
		Type:      alertType,
		Severity:  severity,
		Threshold: threshold,
		Actual:    actual,
		Operation: operation,
		Context:   alertCtx,
		Timestamp: now.UTC(),
	}
}

func (m *TelemetryMonitor) deliver(ctx context.Context, alert entities.AlertEvent) {
	observability.RecordAlert(ctx, m.metrics, string(alert.Type), string(alert.Severity))
	if m.onAlert == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Str("alert_type", string(alert.Type)).Msg("alert sink panicked")
		}
	}()
	m.onAlert(alert)
}

func (m *TelemetryMonitor) snapshotLocked() TelemetrySnapshot {
	snapshot := TelemetrySnapshot{
		Operations: make(map[string]OperationStats, len(m.ops)),
		ErrorCount: m.errorCount,
	}
	for name, stats := range m.ops {
		snapshot.Operations[name] = *stats
	}
	snapshot.TotalOperations = m.totalLocked()
	if snapshot.TotalOperations > 0 {
		snapshot.ErrorRate = float64(m.errorCount) / float64(snapshot.TotalOperations)
	}
	if m.cache != nil {
		snapshot.CacheHitRate = m.cache.Metrics().HitRate
	}
	return snapshot
}

func (m *TelemetryMonitor) totalLocked() int64 {
	var total int64
	for _, stats := range m.ops {
		total += stats.Count
	}
	return total
}

func (m *TelemetryMonitor) resetCounters() {
	m.ops = make(map[string]*OperationStats, len(timedOperations))
	for _, name := range timedOperations {
		m.ops[name] = &OperationStats{}
	}
	m.errorCount = 0
}
