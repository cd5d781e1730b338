package entities

import (
	"time"
)

// AlertType identifies the condition that raised an alert
type AlertType string

const (
	AlertTypeSlowOperation   AlertType = "slow_operation"
	AlertTypeLowCacheHitRate AlertType = "low_cache_hit_rate"
	AlertTypeHighErrorRate   AlertType = "high_error_rate"
	AlertTypeMetricsReset    AlertType = "metrics_reset"
)

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertEvent is delivered to the alert sink
type AlertEvent struct {
	ID        string         `json:"id"`
	Type      AlertType      `json:"type"`
	Severity  Severity       `json:"severity"`
	Threshold float64        `json:"threshold"`
	Actual    float64        `json:"actual"`
	Operation string         `json:"operation,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AlertConfig holds alerting thresholds
type AlertConfig struct {
	SlowOperationThresholdMs float64 `json:"slowOperationThresholdMs"`
	LowCacheHitRateThreshold float64 `json:"lowCacheHitRateThreshold"`
	HighErrorRateThreshold   float64 `json:"highErrorRateThreshold"`
	MinOperationsForAlert    int     `json:"minOperationsForAlert"`
	AlertCooldownMs          int64   `json:"alertCooldownMs"`
}

// DefaultAlertConfig returns the stock thresholds
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		SlowOperationThresholdMs: 100,
		LowCacheHitRateThreshold: 0.5,
		HighErrorRateThreshold:   0.1,
		MinOperationsForAlert:    10,
		AlertCooldownMs:          30000,
	}
}

// Cooldown returns the cooldown window as a duration
func (c AlertConfig) Cooldown() time.Duration {
	return time.Duration(c.AlertCooldownMs) * time.Millisecond
}
