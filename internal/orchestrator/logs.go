package orchestrator

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/runtime"
)

// LogEntry is one line of output from a service's container
// (spec.md §4.5.3).
type LogEntry struct {
	Service   string
	Container string
	Message   string
	Stream    string // stdout | stderr
	Timestamp time.Time
}

// LogsOptions mirrors logs' flags (spec.md §4.5.3).
type LogsOptions struct {
	Selected   []string
	Follow     bool
	Tail       string
	Timestamps bool
}

// Logs implements spec.md §4.5.3's logs operation. It returns the entry
// channel at once. In non-follow mode each container's log stream is
// read to EOF and the channel is closed once every source has closed;
// in follow mode it streams until ctx is cancelled.
func (o *Orchestrator) Logs(ctx context.Context, p *project.Project, opts LogsOptions) (<-chan LogEntry, error) {
	services := selectedOrAll(p, opts.Selected)

	out := make(chan LogEntry, 64)
	var wg sync.WaitGroup

	for name, svc := range services {
		containerID := svc.ContainerName
		if containerID == "" {
			containerID = containerName(p.Name, name)
		}

		reader, err := o.runtime.ContainerLogs(ctx, containerID, runtime.LogOptions{
			Follow:     opts.Follow,
			Tail:       opts.Tail,
			Timestamps: opts.Timestamps,
		})
		if err != nil {
			continue
		}

		wg.Add(1)
		go func(serviceName, containerID string, reader io.ReadCloser) {
			defer wg.Done()
			defer reader.Close()
			scanner := bufio.NewScanner(reader)
			for scanner.Scan() {
				select {
				case out <- LogEntry{Service: serviceName, Container: containerID, Message: scanner.Text(), Stream: "stdout", Timestamp: time.Now()}:
				case <-ctx.Done():
					return
				}
			}
		}(name, containerID, reader)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}
