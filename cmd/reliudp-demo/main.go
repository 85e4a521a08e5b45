// Command reliudp-demo drives one Endpoint from the command line: it
// either sends stdin to a peer or writes n bytes received from a peer
// to stdout, shutting down gracefully on SIGINT/SIGTERM.
package main

import (
	"flag"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/xid"

	"reliudp/internal/telemetry/events"
	"reliudp/internal/telemetry/log"
	"reliudp/internal/telemetry/metrics"
	"reliudp/transport"
)

const version = "0.1.0"

func main() {
	listen := flag.String("listen", "127.0.0.1:0", "local address to bind")
	remote := flag.String("remote", "", "peer address (required)")
	mode := flag.String("mode", "send", "send (stdin -> peer) or recv (peer -> stdout)")
	recvBytes := flag.Int("n", 0, "bytes to read in recv mode")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	log.Banner("reliable UDP transport", version)

	if *remote == "" {
		log.Section("configuration error")
		os.Stderr.WriteString("reliudp-demo: -remote is required\n")
		os.Exit(2)
	}

	lg := log.New()
	lg.SetLevel(log.LevelError)
	if *verbose {
		lg.SetLevel(log.LevelDebug)
	}

	localAddr, err := net.ResolveUDPAddr("udp", *listen)
	if err != nil {
		lg.Errorf("resolve listen address: %v", err)
		os.Exit(1)
	}
	remoteAddr, err := net.ResolveUDPAddr("udp", *remote)
	if err != nil {
		lg.Errorf("resolve remote address: %v", err)
		os.Exit(1)
	}

	cfg := transport.Default()
	mgr := events.NewManager()
	m := metrics.New(xid.New().String())
	mgr.On(events.FrameRetransmitted, func(ev events.Event) {
		lg.Debugf("retransmit seq=%d size=%d", ev.Seq, ev.Size)
	})

	ep, err := transport.New(localAddr, remoteAddr, &cfg,
		transport.WithLogger(lg),
		transport.WithMetrics(m),
		transport.WithEvents(mgr),
	)
	if err != nil {
		lg.Errorf("create endpoint: %v", err)
		os.Exit(1)
	}
	defer ep.Close()

	lg.Infof("endpoint %s listening on %s, peer %s", ep.ID(), localAddr, remoteAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		switch *mode {
		case "recv":
			done <- runRecv(ep, *recvBytes)
		default:
			done <- runSend(ep)
		}
	}()

	select {
	case err := <-done:
		if err != nil {
			lg.Errorf("%s failed: %v", *mode, err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		lg.Warnf("received signal %v, closing endpoint", sig)
	}
}

func runSend(ep *transport.Endpoint) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	_, err = ep.Send(data)
	return err
}

func runRecv(ep *transport.Endpoint, n int) error {
	data, err := ep.Recv(n)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
