// File: cmd/traderctl/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Command-line order-entry driver: dials one trader.Trader, logs every
// inbound application message and the session-state changes seen by a
// once-a-second poll, and shuts down
// cleanly on SIGINT/SIGTERM. Grounded on
// examples/stest/server/main.go's flag+log+signal.Notify idiom
// (momentics/hioload-ws), adapted from a listening server's shutdown
// sequence to a dialing client's.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/fixp-ws-client/api"
	_ "github.com/momentics/fixp-ws-client/codec/sbe"
	"github.com/momentics/fixp-ws-client/trader"
)

func main() {
	addr := flag.String("addr", "wss://localhost:443/trade", "WebSocket trading endpoint")
	timeout := flag.Duration("timeout", 5*time.Second, "send/close bound")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address; empty disables")
	cpuPin := flag.Int("cpu", -1, "logical CPU to pin the dispatcher worker to; zero or negative disables")
	flag.Parse()

	encoding := "SBE"
	if flag.NArg() > 0 {
		encoding = flag.Arg(0)
	}

	tr, err := trader.New(trader.Config{
		Addr:         *addr,
		Encoding:     encoding,
		SendTimeout:  *timeout,
		CloseTimeout: *timeout,
		MetricsAddr:  *metricsAddr,
		CPUPin:       *cpuPin,
	})
	if err != nil {
		log.Fatalf("traderctl: %v", err)
	}

	tr.OnError(func(err error) {
		log.Printf("traderctl: %v", err)
	})
	tr.OnApplication(func(source string, msg api.Message, seqNo uint64) {
		log.Printf("traderctl: %s seq=%d type=%d from %s", describe(msg), seqNo, msg.Type(), source)
	})

	if err := tr.Open(); err != nil {
		log.Fatalf("traderctl: open failed: %v", err)
	}
	log.Printf("traderctl: session %s opened against %s using %s", tr.ID(), *addr, encoding)

	monitorDone := make(chan struct{})
	go monitorState(tr, monitorDone)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("traderctl: shutdown signal received, closing session...")

	close(monitorDone)
	if err := tr.Close(); err != nil {
		log.Printf("traderctl: close error: %v", err)
	}
	log.Println("traderctl: shutdown complete")
	os.Exit(0)
}

// monitorState polls the session state at a coarse interval and logs
// transitions, giving an operator console visibility into
// NOT_ESTABLISHED/heartbeat-lapse events without wiring a full
// api.EventSubscriber for a single-line CLI tool.
func monitorState(tr *trader.Trader, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	last := tr.State()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if cur := tr.State(); cur != last {
				log.Printf("traderctl: session state %s -> %s", last, cur)
				last = cur
			}
		}
	}
}

func describe(msg api.Message) string {
	switch v := msg.(type) {
	case api.ExecutionReport:
		return fmt.Sprintf("execution-report clOrdID=%s orderID=%s symbol=%s", v.ClOrdID(), v.OrderID(), v.Symbol())
	case api.OrderCancelReject:
		return fmt.Sprintf("order-cancel-reject clOrdID=%s reason=%d", v.ClOrdID(), v.CxlRejReason())
	default:
		return "message"
	}
}
