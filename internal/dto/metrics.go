package dto

import "time"

// SystemMetrics is the JSON view of runtime counters.
type SystemMetrics struct {
	CacheHitRatio            float64     `json:"cache_hit_ratio"`
	CacheHits                uint64      `json:"cache_hits"`
	CacheMisses              uint64      `json:"cache_misses"`
	RequestsTotal            uint64      `json:"requests_total"`
	AverageRequestDurationMs float64     `json:"avg_request_duration_ms"`
	DBQueryCount             uint64      `json:"db_query_count"`
	AverageDBQueryDurationMs float64     `json:"avg_db_query_duration_ms"`
	EnrollmentsCreated       uint64      `json:"enrollments_created"`
	EnrollmentsDenied        uint64      `json:"enrollments_denied"`
	Goroutines               int         `json:"goroutines"`
	GeneratedAt              time.Time   `json:"generated_at"`
	Queue                    *QueueStats `json:"notification_queue,omitempty"`
}

// QueueStats mirrors the background queue counters.
type QueueStats struct {
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Retried   uint64 `json:"retried"`
	Pending   int    `json:"pending"`
}
