package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/adalundhe/dirsentry/core/config"
	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/monitor"
	"github.com/adalundhe/dirsentry/core/sink"
	"github.com/adalundhe/dirsentry/core/snapshot"
	"github.com/adalundhe/dirsentry/core/tree"
)

// pipeline wires the scheduler to its store and sinks.
type pipeline struct {
	scheduler *monitor.Scheduler
	store     snapshot.Store
	bus       *sink.Bus
	ring      *sink.Ring
	metrics   *sink.Metrics
	changeLog *sink.ChangeLog
}

// pipelineHooks are optional observers of a monitoring run.
type pipelineHooks struct {
	console       sink.Sink
	onState       func(monitor.State)
	onHashFailure func(path string, err error)
}

// newPipeline builds a scheduler for settings.
func newPipeline(settings *config.Settings, hooks pipelineHooks, logger *slog.Logger) (*pipeline, error) {
	enumerator, err := tree.New(settings.TreeConfig())
	if err != nil {
		return nil, err
	}

	store, err := snapshot.Open(settings.Backend, settings.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	changeLog, err := sink.OpenChangeLog(settings.LogPath, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	p := &pipeline{
		store:     store,
		ring:      sink.NewRing(settings.RingSize),
		metrics:   sink.NewMetrics(),
		changeLog: changeLog,
	}

	durable := []sink.Sink{changeLog}
	if hooks.console != nil {
		durable = append(durable, hooks.console)
	}
	p.bus = sink.NewBus(sink.BusConfig{
		BufferSize: sink.DefaultBufferSize,
		Logger:     logger,
		Durable:    durable,
		Lossy:      []sink.Sink{p.ring, p.metrics},
	})

	p.scheduler, err = monitor.New(monitor.Config{
		Interval:         settings.Interval,
		CheckGranularity: settings.CheckGranularity,
		Workers:          settings.Workers,
		Policy:           settings.Policy,
		Enumerator:       enumerator,
		Hasher:           fingerprint.NewHasher(settings.Algorithm),
		Store:            store,
		Publisher:        p.bus,
		Observer:         p.metrics,
		Logger:           logger,
		OnState:          hooks.onState,
		OnHashFailure:    hooks.onHashFailure,
	})
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Close flushes pending events to the sinks and releases the store.
func (p *pipeline) Close() error {
	return errors.Join(p.bus.Close(), p.store.Close())
}
