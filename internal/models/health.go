package models

// HealthStatus is reported by the health endpoint.
type HealthStatus struct {
	Status            string  `json:"status"`
	UptimeSeconds     int64   `json:"uptimeSeconds"`
	Database          string  `json:"database"`
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
}
