/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package httpserver

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/uvhttpd/message"
)

// healthBody is the JSON payload served at /__health, grounded on
// uvhttp_health_t's status/uptime_seconds/active_connections fields.
type healthBody struct {
	IsListening       bool    `json:"is_listening"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// metrics holds one server's Prometheus collectors under the server's own
// registry rather than the global DefaultRegisterer, so that several
// servers (or, as in this package's tests, several short-lived instances
// bound to the same "listen" value) can coexist without a duplicate-
// registration panic.
type metrics struct {
	registry *prometheus.Registry

	activeConnections prometheus.Gauge
	acceptedTotal      prometheus.Counter
	rejectedTotal      prometheus.Counter
	rateLimitedTotal   prometheus.Counter
	wsSessions         prometheus.Gauge
}

func newMetrics(listen string) *metrics {
	labels := prometheus.Labels{"listen": listen}
	reg := prometheus.NewRegistry()

	m := &metrics{
		registry: reg,
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "uvhttpd",
			Name:        "active_connections",
			Help:        "Number of connections currently tracked by this server.",
			ConstLabels: labels,
		}),
		acceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "uvhttpd",
			Name:        "accepted_total",
			Help:        "Total number of connections accepted.",
			ConstLabels: labels,
		}),
		rejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "uvhttpd",
			Name:        "rejected_total",
			Help:        "Total number of connections rejected due to the max-connections ceiling.",
			ConstLabels: labels,
		}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "uvhttpd",
			Name:        "rate_limited_total",
			Help:        "Total number of requests rejected by the rate limiter.",
			ConstLabels: labels,
		}),
		wsSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "uvhttpd",
			Name:        "websocket_sessions",
			Help:        "Number of currently registered WebSocket sessions.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(m.activeConnections, m.acceptedTotal, m.rejectedTotal, m.rateLimitedTotal, m.wsSessions)
	return m
}

// healthHandler backs the /__health route (SPEC_FULL.md, Supplemented
// Feature 5): 200 while the accept loop is running, 503 otherwise.
func (s *srv) healthHandler(_ *message.Request, resp *message.Response) {
	body := healthBody{
		IsListening:       s.IsRunning(),
		ActiveConnections: int64(s.connCount()),
		UptimeSeconds:     s.Uptime().Seconds(),
	}

	if err := s.HealthCheck(); err != nil {
		resp.Status = 503
	} else {
		resp.Status = 200
	}

	b, _ := json.Marshal(body)
	_ = resp.Headers.Set("Content-Type", "application/json")
	resp.Body = b
}
