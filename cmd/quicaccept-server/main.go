// Command quicaccept-server is a demo wiring a UDP listener to the
// connection-candidate admission pipeline. It does not speak past the
// Initial encryption level: promote() hands off to a logging stub standing
// in for the out-of-scope TLS engine and post-handshake connection state.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quicaccept/quicaccept/candidate"
	"github.com/quicaccept/quicaccept/config"
	"github.com/quicaccept/quicaccept/internal/protocol"
	"github.com/quicaccept/quicaccept/internal/slogutil"
	"github.com/quicaccept/quicaccept/internal/wire"
)

func main() {
	bindTo := flag.String("bind", "0.0.0.0", "address to bind the UDP listener to")
	port := flag.Int("port", 4433, "UDP port to listen on")
	metricsAddr := flag.String("metrics", "", "address to serve Prometheus metrics on, empty to disable")
	workers := flag.Int("workers", 0, "dispatcher worker count, 0 for GOMAXPROCS")
	flag.Parse()

	logger := slogutil.New(os.Stderr)

	cfg := config.New(config.WithWorkers(*workers))

	if cfg.Registerer != nil {
		candidate.RegisterMetrics(cfg.Registerer)
	}
	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			logger.Info("serving metrics", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	factory := &stubFactory{log: slogutil.Component(logger, "stub-connection")}
	registry := candidate.NewRegistry(factory)

	stop := make(chan struct{})
	registry.RunEvictionSweep(cfg.EvictionSweepInterval, stop)
	defer close(stop)

	dispatcher := candidate.NewDispatcher(registry, cfg.Workers)
	defer dispatcher.Close()

	addr := &net.UDPAddr{IP: net.ParseIP(*bindTo), Port: *port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		logger.Error("failed to bind UDP listener", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	logger.Info("listening", "addr", conn.LocalAddr())

	buf := make([]byte, protocol.MaxIncomingPacketSize)
	for {
		n, remoteAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			logger.Error("read failed", "err", err)
			continue
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])

		dcid, err := wire.ParseConnectionID(datagram)
		if err != nil {
			continue // too short to contain even a DCID length; silently drop
		}
		dispatcher.SubmitDatagram(dcid, datagram, remoteAddr.String())
	}
}

// stubFactory stands in for the out-of-scope TLS engine and post-Initial
// connection object. A production deployment replaces both with the real
// TLS 1.3 stack and session machinery; this module's contract with them ends
// at feed_client_hello and promote (spec.md §6).
type stubFactory struct {
	log *slog.Logger
}

func (f *stubFactory) NewConnection(remoteAddr string, scid, dcid protocol.ConnectionID) candidate.Connection {
	return &stubConnection{log: f.log, remoteAddr: remoteAddr, scid: scid, dcid: dcid}
}

func (f *stubFactory) NewTLSEngine(perspective protocol.Perspective) candidate.TLSEngine {
	return &stubTLSEngine{}
}

// stubTLSEngine declares a ClientHello complete once the accumulated prefix
// reaches a fixed floor. A real engine would run the actual TLS record
// layer; this is only enough to exercise the candidate's promotion path in
// this demo binary.
type stubTLSEngine struct{}

const stubClientHelloFloor = 512

func (e *stubTLSEngine) FeedClientHello(data []byte) (bool, []byte, error) {
	return len(data) >= stubClientHelloFloor, nil, nil
}

type stubConnection struct {
	log        *slog.Logger
	remoteAddr string
	scid, dcid protocol.ConnectionID
}

func (c *stubConnection) Promote(initialPackets []candidate.RetainedPacket, trailingBytes []byte, clientHello []byte, remoteAddr string, scid, dcid protocol.ConnectionID) {
	c.log.Info("candidate promoted",
		"remote", remoteAddr,
		"scid", fmt.Sprintf("%x", scid.Bytes()),
		"dcid", fmt.Sprintf("%x", dcid.Bytes()),
		"initial_packets", len(initialPackets),
		"client_hello_len", len(clientHello),
		"trailing_len", len(trailingBytes),
	)
}
