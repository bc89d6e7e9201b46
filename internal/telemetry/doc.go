// Package telemetry обеспечивает наблюдаемость migrator.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики pipeline, шагов и polling
//
// CLI экспортирует метрики на /metrics, если задан metrics_addr.
package telemetry
