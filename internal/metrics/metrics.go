package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstudio_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetstudio_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets, // 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10
		},
		[]string{"method", "path"},
	)

	// APIRequestSize API 请求体大小（字节）
	APIRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetstudio_api_request_size_bytes",
			Help:    "API 请求体大小分布",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)

	// APIResponseSize API 响应体大小（字节）
	APIResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetstudio_api_response_size_bytes",
			Help:    "API 响应体大小分布",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)
)

// 审批与通知指标
var (
	// ApprovalPendingGauge 当前待审批数量
	ApprovalPendingGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetstudio_approval_pending_total",
			Help: "当前待审批数量",
		},
		[]string{"tenant_id"},
	)

	// ApprovalDecisionsTotal 评审决定次数
	ApprovalDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstudio_approval_decisions_total",
			Help: "评审决定次数",
		},
		[]string{"tenant_id", "status", "decision_type"},
	)

	// FinalApprovalsTotal 终审尝试次数
	FinalApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstudio_final_approvals_total",
			Help: "终审尝试次数",
		},
		[]string{"tenant_id", "outcome"}, // outcome: granted, denied, forbidden
	)

	// ApprovalNotificationsTotal 审批通知发送次数
	ApprovalNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstudio_approval_notifications_total",
			Help: "审批通知发送次数",
		},
		[]string{"channel", "tenant_id", "status"},
	)

	// WebSocketConnectionsGauge WebSocket 在线连接数
	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetstudio_ws_connections",
			Help: "WebSocket 在线连接数",
		},
		[]string{"tenant_id"},
	)
)

// 数据库指标
var (
	// DBConnections 数据库连接数
	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetstudio_db_connections",
			Help: "数据库连接数",
		},
		[]string{"state"}, // state: open, in_use, idle
	)

	// DBQueryDuration 数据库查询耗时（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetstudio_db_query_duration_seconds",
			Help:    "数据库查询耗时分布",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"}, // operation: select, insert, update, delete
	)

	// DBQueriesTotal 数据库查询总数
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstudio_db_queries_total",
			Help: "数据库查询总数",
		},
		[]string{"operation", "status"},
	)
)

// 缓存指标
var (
	// CacheHitsTotal 缓存命中数
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstudio_cache_hits_total",
			Help: "缓存命中总数",
		},
		[]string{"cache_type"},
	)

	// CacheMissesTotal 缓存未命中数
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assetstudio_cache_misses_total",
			Help: "缓存未命中总数",
		},
		[]string{"cache_type"},
	)

	// CacheOperationDuration 缓存操作耗时（秒）
	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assetstudio_cache_operation_duration_seconds",
			Help:    "缓存操作耗时分布",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
		[]string{"cache_type", "operation"}, // operation: get, set, delete
	)
)

// 系统指标
var (
	// BuildInfo 构建信息
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assetstudio_build_info",
			Help: "Asset Studio 构建信息",
		},
		[]string{"version", "go_version", "commit"},
	)
)

// RecordBuildInfo 记录构建信息
func RecordBuildInfo(version, goVersion, commit string) {
	BuildInfo.WithLabelValues(version, goVersion, commit).Set(1)
}
