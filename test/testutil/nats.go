package testutil

import (
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

// natsServerEnv overrides the nats-server binary used by integration tests.
const natsServerEnv = "ROADWATCH_NATS_SERVER"

// FreePort reserves a local TCP port and returns it to the caller.
func FreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// StartLocalNATSServer starts a throwaway nats-server with JetStream for queue, KV, and ingest tests.
// Params: test handle; the test is skipped when the binary is unavailable.
// Returns: server URL and idempotent stop callback, also registered with tb.Cleanup.
func StartLocalNATSServer(tb testing.TB) (string, func()) {
	tb.Helper()

	binary := os.Getenv(natsServerEnv)
	if binary == "" {
		binary = "nats-server"
	}
	if _, err := exec.LookPath(binary); err != nil {
		tb.Skipf("%s is required for integration test: %v", binary, err)
	}

	port, err := FreePort()
	if err != nil {
		tb.Fatalf("free port: %v", err)
	}

	cmd := exec.Command(binary, "-js", "-a", "127.0.0.1", "-p", strconv.Itoa(port), "-sd", tb.TempDir())
	if err := cmd.Start(); err != nil {
		tb.Skipf("start %s: %v", binary, err)
	}

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			done := make(chan struct{})
			go func() {
				_, _ = cmd.Process.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				_ = cmd.Process.Kill()
				<-done
			}
		})
	}
	tb.Cleanup(stop)

	url := "nats://127.0.0.1:" + strconv.Itoa(port)
	WaitForNATSReady(tb, url, 8*time.Second)
	return url, stop
}

// WaitForNATSReady waits until a NATS endpoint accepts connections.
func WaitForNATSReady(tb testing.TB, url string, timeout time.Duration) {
	tb.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		nc, err := nats.Connect(url)
		if err == nil {
			nc.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	tb.Fatalf("nats did not become ready at %s", url)
}

// WaitForStreamEmpty waits until a work-queue stream holds no pending messages.
// Params: test handle, nats URL, stream name, and timeout.
// Returns: stream drained or test fails with last observed count.
func WaitForStreamEmpty(tb testing.TB, url, stream string, timeout time.Duration) {
	tb.Helper()

	nc, err := nats.Connect(url)
	if err != nil {
		tb.Fatalf("connect nats: %v", err)
	}
	defer nc.Close()
	js, err := nc.JetStream()
	if err != nil {
		tb.Fatalf("jetstream context: %v", err)
	}

	var last uint64
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		info, err := js.StreamInfo(stream)
		if err == nil {
			last = info.State.Msgs
			if last == 0 {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	tb.Fatalf("stream %s still holds %d messages", stream, last)
}
