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

package httpserver_test

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libcfg "github.com/nabbar/uvhttpd/config"
	"github.com/nabbar/uvhttpd/httpserver"
	"github.com/nabbar/uvhttpd/message"
)

func testConfig() libcfg.Config {
	cfg := libcfg.Default()
	cfg.Listen = "127.0.0.1:0"
	cfg.EnableHealthRoute = true
	cfg.KeepaliveTimeout = 2 * time.Second
	return cfg
}

func dial(addr string) *http.Response {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = conn.Close() }()

	_, err = conn.Write([]byte("GET /__health HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	Expect(err).NotTo(HaveOccurred())

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

var _ = Describe("Server", func() {
	It("listens, serves /__health, and shuts down cleanly", func() {
		srv, err := httpserver.New(testConfig(), nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(srv.Listen()).To(BeNil())
		defer func() { _ = srv.Shutdown() }()

		Eventually(func() bool { return srv.IsRunning() }).Should(BeTrue())

		resp := dial(srv.Addr())
		Expect(resp.StatusCode).To(Equal(200))

		var body struct {
			IsListening       bool    `json:"is_listening"`
			ActiveConnections int64   `json:"active_connections"`
			UptimeSeconds     float64 `json:"uptime_seconds"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		Expect(body.IsListening).To(BeTrue())
		Expect(body.UptimeSeconds).To(BeNumerically(">=", 0))

		Expect(srv.Shutdown()).To(BeNil())
		Expect(srv.IsRunning()).To(BeFalse())
	})

	It("refuses a second Listen while already running", func() {
		srv, err := httpserver.New(testConfig(), nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(srv.Listen()).To(BeNil())
		defer func() { _ = srv.Shutdown() }()

		Expect(srv.Listen()).NotTo(BeNil())
	})

	It("reports HealthCheck failure before Listen and after Shutdown", func() {
		srv, err := httpserver.New(testConfig(), nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(srv.HealthCheck()).To(HaveOccurred())

		Expect(srv.Listen()).To(BeNil())
		Expect(srv.HealthCheck()).NotTo(HaveOccurred())

		Expect(srv.Shutdown()).To(BeNil())
		Expect(srv.HealthCheck()).To(HaveOccurred())
	})

	It("dispatches a registered route through a real socket", func() {
		srv, err := httpserver.New(testConfig(), nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(srv.Router().Register(message.MaskGet, "/hello", func(_ *message.Request, resp *message.Response) {
			resp.Status = 200
			resp.Body = []byte("world")
		})).To(BeNil())

		Expect(srv.Listen()).To(BeNil())
		defer func() { _ = srv.Shutdown() }()

		conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = conn.Close() }()

		_, err = conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(200))
	})

	It("rejects new connections past MaxConnections with a 503", func() {
		cfg := testConfig()
		cfg.MaxConnections = 1

		srv, err := httpserver.New(cfg, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Listen()).To(BeNil())
		defer func() { _ = srv.Shutdown() }()

		holder, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = holder.Close() }()

		Eventually(func() int64 { return srv.Monitor().ActiveConnections }).Should(BeNumerically(">=", 1))

		resp := dial(srv.Addr())
		Expect(resp.StatusCode).To(Equal(503))
	})

	It("swaps the rate limiter live via UpdateLimits", func() {
		srv, err := httpserver.New(testConfig(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv.Listen()).To(BeNil())
		defer func() { _ = srv.Shutdown() }()

		Expect(srv.UpdateLimits(10, libcfg.RateLimit{
			Enabled:       true,
			MaxRequests:   1,
			WindowSeconds: 60 * time.Second,
		})).To(BeNil())

		first := dial(srv.Addr())
		Expect(first.StatusCode).To(Equal(200))

		second := dial(srv.Addr())
		Expect(second.StatusCode).To(Equal(429))

		Eventually(func() int64 { return srv.Monitor().TotalRateLimited }).Should(BeNumerically(">=", 1))
	})
})
