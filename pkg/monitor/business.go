package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	ProvisionTotal         *prometheus.CounterVec
	WithdrawSubmittedTotal *prometheus.CounterVec
	WithdrawRejectedTotal  *prometheus.CounterVec
	WithdrawSettledTotal   *prometheus.CounterVec
	FeeEstimateDuration    *prometheus.HistogramVec
	CredentialRenewalTotal *prometheus.CounterVec
	ActiveSessions         prometheus.Gauge
	OutboxRelayedTotal     *prometheus.CounterVec
	ConfirmationPollsTotal *prometheus.CounterVec
	WithdrawAmountTotal    *prometheus.CounterVec
}

// Business 全局业务指标，包初始化时注册到默认 Registry
var Business = NewBusinessMetrics(prometheus.DefaultRegisterer)

// NewBusinessMetrics 在指定 Registry 上注册业务指标 (测试中可传入独立 Registry)
func NewBusinessMetrics(reg prometheus.Registerer) *BusinessMetrics {
	f := promauto.With(reg)
	return &BusinessMetrics{
		ProvisionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_provision_total",
			Help: "Wallet provisioning outcomes",
		}, []string{"result"}),
		WithdrawSubmittedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_withdraw_submitted_total",
			Help: "Withdrawals accepted by the network",
		}, []string{"chain"}),
		WithdrawRejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_withdraw_rejected_total",
			Help: "Withdrawals rejected before or at broadcast",
		}, []string{"chain"}),
		WithdrawSettledTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_withdraw_settled_total",
			Help: "Withdrawals that reached a terminal status",
		}, []string{"chain", "status"}),
		FeeEstimateDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wallet_fee_estimate_duration_seconds",
			Help:    "Duration of fee estimation calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"family"}),
		CredentialRenewalTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_credential_renewal_total",
			Help: "Exchange credential renewal attempts",
		}, []string{"result"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_active_sessions",
			Help: "Live user sessions",
		}),
		OutboxRelayedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_outbox_relayed_total",
			Help: "Outbox messages relayed to the message queue",
		}, []string{"result"}),
		ConfirmationPollsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_confirmation_polls_total",
			Help: "Confirmation polls by observed status",
		}, []string{"chain", "status"}),
		WithdrawAmountTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_withdraw_amount_total",
			Help: "The total amount of withdraws",
		}, []string{"currency"}),
	}
}
