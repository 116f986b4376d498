package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Task metrics
	TaskExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profitscout_task_executions_total",
			Help: "Total number of analysis tasks by terminal status",
		},
		[]string{"status"}, // status: completed|failed
	)

	TaskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "profitscout_task_duration_seconds",
			Help:    "Analysis task duration from creation to terminal event",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	TasksInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "profitscout_tasks_in_flight",
			Help: "Number of tasks currently pending or running",
		},
	)

	// Stage metrics
	StageExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profitscout_stage_executions_total",
			Help: "Total number of analysis stage runs",
		},
		[]string{"stage", "status"}, // status: success|error
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "profitscout_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// LLM metrics
	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profitscout_llm_calls_total",
			Help: "Total number of language-model calls",
		},
		[]string{"provider", "purpose", "status"}, // purpose: synthesis|recommendation
	)

	LLMLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "profitscout_llm_latency_seconds",
			Help:    "Language-model call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	// Chat metrics
	ChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profitscout_chat_messages_total",
			Help: "Total chat messages by classified intent",
		},
		[]string{"intent"},
	)

	ChatRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profitscout_chat_rejections_total",
			Help: "Messages rejected at the front door",
		},
		[]string{"reason"}, // reason: rate_limit|too_long
	)

	// Relay metrics
	StreamSubscriptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profitscout_stream_subscriptions_total",
			Help: "Stream subscriptions by outcome",
		},
		[]string{"outcome"}, // outcome: delivered|timeout|unknown_task|client_gone
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profitscout_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "profitscout_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"worker"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(TaskExecutions)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(TasksInFlight)

	prometheus.MustRegister(StageExecutions)
	prometheus.MustRegister(StageDuration)

	prometheus.MustRegister(LLMCalls)
	prometheus.MustRegister(LLMLatency)

	prometheus.MustRegister(ChatMessages)
	prometheus.MustRegister(ChatRejections)

	prometheus.MustRegister(StreamSubscriptions)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordStage records one stage adapter run
func RecordStage(stage string, duration time.Duration, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	StageExecutions.WithLabelValues(stage, status).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordLLMCall records one language-model call
func RecordLLMCall(provider, purpose string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	LLMCalls.WithLabelValues(provider, purpose, status).Inc()
	LLMLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordWorkerExecution records one worker iteration
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
}
