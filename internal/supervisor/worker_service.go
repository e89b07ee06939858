package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const terminateGracePeriod = 10 * time.Second

// WorkerService supervises one worker slot: it spawns the worker process and
// reports its exit as a service failure so the supervisor's restart policy
// replaces it. The slot itself lives for the supervisor's whole lifetime.
type WorkerService struct {
	binary string
	slot   int
	port   int
}

func NewWorkerService(binary string, slot, port int) *WorkerService {
	return &WorkerService{binary: binary, slot: slot, port: port}
}

// Serve spawns the worker process and blocks until it exits or ctx is
// cancelled. A worker exit for any reason is returned as an error, which is
// what triggers the replacement spawn.
func (w *WorkerService) Serve(ctx context.Context) error {
	cmd := exec.Command(w.binary)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("ASKWAVE_WORKER_SLOT=%d", w.slot),
		fmt.Sprintf("PORT=%d", w.port),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn worker slot %d: %w", w.slot, err)
	}

	exitCh := make(chan error, 1)
	go func() { exitCh <- cmd.Wait() }()

	select {
	case err := <-exitCh:
		if err != nil {
			return fmt.Errorf("worker slot %d exited: %w", w.slot, err)
		}
		return fmt.Errorf("worker slot %d exited cleanly before shutdown", w.slot)

	case <-ctx.Done():
		// Graceful stop: SIGTERM, then SIGKILL after the grace period.
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-exitCh:
		case <-time.After(terminateGracePeriod):
			_ = cmd.Process.Kill()
			<-exitCh
		}
		return ctx.Err()
	}
}

func (w *WorkerService) String() string {
	return fmt.Sprintf("worker-slot-%d", w.slot)
}
