// Package main provides a demo transport bridge for the TST telemetry
// engine.
//
// It registers one device with several interfaces and pumps simulated
// traffic through each interface concurrently via goroutines, guarded
// by a single mutex around the shared Engine (spec §5: the engine is
// not internally synchronized, so a multi-threaded host must supply
// its own lock around the whole surface).
//
// Usage:
//
//	go run . [options]
//
// Options:
//
//	-interfaces N     number of simulated interfaces to pump (default: 3)
//	-rounds N         number of rx/tx rounds per interface (default: 10)
//	-tick duration    interval between timer ticks (default: 100ms)
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jondurrant/tst-telemetry/engine"
	"github.com/jondurrant/tst-telemetry/pkg"
	_ "github.com/jondurrant/tst-telemetry/pkg/prof"
	"github.com/jondurrant/tst-telemetry/timer"
)

func main() {
	numInterfaces := flag.Int("interfaces", 3, "number of simulated interfaces to pump")
	rounds := flag.Int("rounds", 10, "number of rx/tx rounds per interface")
	tick := flag.Duration("tick", 100*time.Millisecond, "interval between timer ticks")
	flag.Parse()

	pkg.SetLogLevel(slog.LevelInfo)

	eng := engine.New()
	cfg := engine.DeviceConfig{Name: "bridge"}
	for i := 0; i < *numInterfaces; i++ {
		cfg.Interfaces = append(cfg.Interfaces, engine.InterfaceConfig{
			Name:       "if" + strconv.Itoa(i),
			MaxPayload: 256,
		})
	}
	cfg.Structs = []engine.StructConfig{
		{Name: "status", Region: make([]byte, 16)},
	}
	if err := eng.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "engine init failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	svc := timer.NewService()
	svc.StartPeriodic("heartbeat", uint32(tick.Milliseconds()), func(any) {
		pkg.LogInfo(pkg.ComponentTimer, "heartbeat")
	}, nil)

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *numInterfaces; i++ {
		ifName := "if" + strconv.Itoa(i)
		g.Go(func() error {
			return pumpInterface(gctx, eng, &mu, ifName, *rounds)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(*tick)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				mu.Lock()
				svc.Tick(uint32(tick.Milliseconds()))
				mu.Unlock()
			}
		}
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "bridge stopped: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("bridge stopped cleanly")
}

// pumpInterface brings one interface online and alternates sending a
// monitor message with draining whatever the engine queued in
// response, round times.
func pumpInterface(ctx context.Context, eng *engine.Engine, mu *sync.Mutex, ifName string, rounds int) error {
	mu.Lock()
	err := eng.Rx("bridge", ifName, onlineFrame())
	mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: bring online: %w", ifName, err)
	}

	for i := 0; i < rounds; i++ {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		mu.Lock()
		sendErr := eng.MonitorSend("bridge", ifName, fmt.Sprintf("%s round %d", ifName, i))
		frame, txErr := eng.Tx("bridge", ifName)
		mu.Unlock()

		if sendErr != nil {
			return fmt.Errorf("%s: monitor send: %w", ifName, sendErr)
		}
		if txErr == nil {
			pkg.LogDebug(pkg.ComponentEngine, "drained frame", "interface", ifName, "bytes", len(frame))
		}

		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// onlineFrame builds a raw Online control frame (mode=0, the 3-byte
// common header with no payload), since cmd only has engine's exported
// surface available, not its internal codec.
func onlineFrame() []byte {
	buf := make([]byte, 3)
	binary.NativeEndian.PutUint16(buf[1:3], engine.HashID("bridge"))
	return buf
}
