// Package server provides the host's debug and introspection HTTP API.
//
// The API is an operator surface, not the bus protocol: it registers
// loopback connections, drives test deliveries through the real
// transfer engine, and exposes buffer/connection stats plus Prometheus
// metrics. It binds to loopback by default.
package server
