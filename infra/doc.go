// Package infra contains technical adapters such as metrics exporters,
// KPI storage and error monitoring. These packages depend only on the
// interfaces defined in the core packages.
package infra
