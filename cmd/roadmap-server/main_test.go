package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joelkehle/glp1-roadmap/internal/platform/logger"
)

func TestServeDrainsInFlightRequestsBeforeFlush(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	entered := make(chan struct{})
	release := make(chan struct{})
	var completed atomic.Bool
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		completed.Store(true)
		_, _ = io.WriteString(w, "ok")
	})}

	var flushedAfterDrain atomic.Bool
	flushed := make(chan struct{})
	flush := func(context.Context) error {
		flushedAfterDrain.Store(completed.Load())
		close(flushed)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- serve(ctx, srv, ln, logger.Nop(), flush) }()

	respDone := make(chan error, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err == nil {
			_, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
		}
		respDone <- err
	}()

	<-entered
	cancel()
	select {
	case <-served:
		t.Fatal("serve returned while a request was still in flight")
	case <-time.After(100 * time.Millisecond):
	}
	close(release)

	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}
	<-flushed
	if !flushedAfterDrain.Load() {
		t.Fatal("flush ran before the in-flight request completed")
	}
	if err := <-respDone; err != nil {
		t.Fatalf("in-flight request failed: %v", err)
	}
}
