package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮件指标
	MessagesSent        prometheus.Counter
	MessagesRead        prometheus.Counter
	AttachmentsDropped  prometheus.Counter
	AttachmentSize      prometheus.Histogram
	RecipientRejections *prometheus.CounterVec

	// 域名指标
	DomainsCreated      prometheus.Counter
	DomainVerifications *prometheus.CounterVec

	// 用户指标
	UsersCreated prometheus.Counter
	LoginsTotal  *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		MessagesSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_messages_sent_total",
				Help: "Total number of messages delivered",
			},
		),

		MessagesRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_messages_read_total",
				Help: "Total number of messages marked read",
			},
		),

		AttachmentsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_attachments_dropped_total",
				Help: "Total number of attachments dropped for exceeding the size limit",
			},
		),

		AttachmentSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "webmail_attachment_size_bytes",
				Help:    "Attachment size in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 12),
			},
		),

		RecipientRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmail_recipient_rejections_total",
				Help: "Total number of recipients rejected at validation",
			},
			[]string{"reason"},
		),

		DomainsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_domains_created_total",
				Help: "Total number of domains registered",
			},
		),

		DomainVerifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmail_domain_verifications_total",
				Help: "Total number of domain verification checks",
			},
			[]string{"result"},
		),

		UsersCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webmail_users_created_total",
				Help: "Total number of mailbox users created",
			},
		),

		LoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmail_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordMessageSent 记录邮件投递
func (m *Metrics) RecordMessageSent() {
	m.MessagesSent.Inc()
}

// RecordMessageRead 记录邮件阅读
func (m *Metrics) RecordMessageRead() {
	m.MessagesRead.Inc()
}

// RecordAttachmentDropped 记录附件被移除
func (m *Metrics) RecordAttachmentDropped(size int64) {
	m.AttachmentsDropped.Inc()
	m.AttachmentSize.Observe(float64(size))
}

// RecordRecipientRejection 记录收件人校验失败
func (m *Metrics) RecordRecipientRejection(reason string) {
	m.RecipientRejections.WithLabelValues(reason).Inc()
}

// RecordDomainCreated 记录域名注册
func (m *Metrics) RecordDomainCreated() {
	m.DomainsCreated.Inc()
}

// RecordDomainVerification 记录域名验证结果
func (m *Metrics) RecordDomainVerification(result string) {
	m.DomainVerifications.WithLabelValues(result).Inc()
}

// RecordUserCreated 记录用户创建
func (m *Metrics) RecordUserCreated() {
	m.UsersCreated.Inc()
}

// RecordLogin 记录登录尝试
func (m *Metrics) RecordLogin(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// GinMiddleware 返回记录请求指标的 Gin 中间件。
// endpoint 取路由模板而非原始路径，避免基数爆炸。
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// Handler 返回 Prometheus HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
