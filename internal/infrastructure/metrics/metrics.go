package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vigia_auth"

// Metrics colectores Prometheus del servicio. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	logins       *prometheus.CounterVec
	registers    *prometheus.CounterVec
	resets       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
}

// New registra los colectores en registerer. nil usa el registerer por defecto.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Intentos de login por resultado y motivo.",
		}, []string{"status", "reason"}),
		registers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "register_total",
			Help:      "Cadastros de empresa por código de resultado.",
		}, []string{"code"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_reset_total",
			Help:      "Operaciones de redefinición por etapa y código.",
		}, []string{"stage", "code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Peticiones HTTP por método, ruta y status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP en segundos.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Ejecuciones de tareas por nombre y estado.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duración de las tareas en segundos.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}
	registerer.MustRegister(m.logins, m.registers, m.resets, m.httpRequests, m.httpDuration, m.jobRuns, m.jobDuration)
	return m
}

// ObserveLogin cuenta un login. reason vacío para los exitosos.
func (m *Metrics) ObserveLogin(status, reason string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(status, reason).Inc()
}

// ObserveRegister cuenta un cadastro; code "OK" si salió bien.
func (m *Metrics) ObserveRegister(code string) {
	if m == nil {
		return
	}
	m.registers.WithLabelValues(code).Inc()
}

// ObserveReset cuenta una etapa del flujo de redefinición (request, consume).
func (m *Metrics) ObserveReset(stage, code string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(stage, code).Inc()
}

// ObserveHTTP registra una petición terminada.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveJob registra una ejecución de tarea del worker.
func (m *Metrics) ObserveJob(job string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.jobRuns.WithLabelValues(job, status).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}
