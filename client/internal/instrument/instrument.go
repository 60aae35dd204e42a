// instrument.go - Protocol engine instrumentation.
// SPDX-FileCopyrightText: Copyright (C) 2026 The purelink authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package instrument exposes prometheus counters for the protocol
// engine.  Updates are fire and forget; the engine never blocks on
// metrics.
package instrument

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesReceived counts inbound messages per channel kind.
	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spice_messages_received_total",
			Help: "Number of messages received, by channel.",
		},
		[]string{"channel"},
	)

	// BytesReceived counts inbound payload bytes per channel kind.
	BytesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spice_bytes_received_total",
			Help: "Number of payload bytes received, by channel.",
		},
		[]string{"channel"},
	)

	// MessagesDiscarded counts inbound messages dropped without a
	// handler, by channel kind.
	MessagesDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spice_messages_discarded_total",
			Help: "Number of messages discarded unread, by channel.",
		},
		[]string{"channel"},
	)

	// PacketsSent counts outbound packets per channel kind.
	PacketsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spice_packets_sent_total",
			Help: "Number of packets sent, by channel.",
		},
		[]string{"channel"},
	)

	// AgentTokensConsumed counts agent carrier tokens spent.
	AgentTokensConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spice_agent_tokens_consumed_total",
			Help: "Number of agent flow control tokens consumed.",
		},
	)

	// ClipboardTransfers counts completed inbound clipboard transfers.
	ClipboardTransfers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spice_clipboard_transfers_total",
			Help: "Number of completed inbound clipboard transfers.",
		},
	)
)

func init() {
	prometheus.MustRegister(MessagesReceived)
	prometheus.MustRegister(BytesReceived)
	prometheus.MustRegister(MessagesDiscarded)
	prometheus.MustRegister(PacketsSent)
	prometheus.MustRegister(AgentTokensConsumed)
	prometheus.MustRegister(ClipboardTransfers)
}

// Init exposes the registered metrics over HTTP at addr.
func Init(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(addr, nil)
}
