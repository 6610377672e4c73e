/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command nanokernd is a host-runnable demo of the nanokern core: a
// producer/consumer over a typed channel, a mutex-guarded shared counter,
// and an event-flag-driven watchdog process, all scheduled by the same
// kernel under a simulated system timer. It exists to exercise the public
// API surface end to end (SPEC_FULL.md section 6.1), not as a library
// entry point — nothing in the core packages depends on this command.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nanokern/nanokern/channel"
	"github.com/nanokern/nanokern/config"
	"github.com/nanokern/nanokern/eventflag"
	"github.com/nanokern/nanokern/isrguard"
	"github.com/nanokern/nanokern/kernel"
	"github.com/nanokern/nanokern/klog"
	"github.com/nanokern/nanokern/mutex"
	"github.com/nanokern/nanokern/platform"
	"github.com/nanokern/nanokern/process"
	"github.com/nanokern/nanokern/profiler"
)

var (
	scheme    = flag.String("scheme", "direct", "context switch scheme: direct or deferred")
	ticks     = flag.Int("ticks", 200, "number of simulated system ticks to run before reporting and exiting")
	tickEvery = flag.Duration("tick-interval", time.Millisecond, "wall-clock interval between simulated ticks")
)

func main() {
	flag.Parse()

	platform.PinSingleCPU()

	cs := config.SchemeDirect
	if *scheme == "deferred" {
		cs = config.SchemeDeferred
	} else if *scheme != "direct" {
		log.Fatalf("unknown -scheme %q: want direct or deferred", *scheme)
	}

	cfg := config.Default()
	cfg.ProcessCount = 4
	cfg.ContextSwitchScheme = cs
	cfg.SystimerHookEnable = true

	logger := klog.New(os.Stderr, "nanokernd")
	logger.SetLevel(klog.INFO)

	k, err := kernel.New(cfg, logger)
	if err != nil {
		log.Fatalf("kernel.New: %v", err)
	}
	prof := profiler.New(k)

	ch := channel.New[int](k, 4)
	mu := mutex.New(k)
	watchdogFlag := eventflag.New(k)
	counter := 0

	producer := process.New(0, 4096, func(p *process.Process) {
		for i := 0; ; i++ {
			ch.Push(i)
			p.Sleep(3)
		}
	}, process.WithName("producer"))

	consumer := process.New(1, 4096, func(p *process.Process) {
		for {
			v, ok := ch.Pop(50)
			if !ok {
				continue
			}
			mu.Lock()
			counter += v
			if err := mu.Unlock(); err != nil {
				logger.Error("consumer: unexpected unlock error", klog.Field("err", err))
			}
			if v%10 == 0 {
				watchdogFlag.Signal()
			}
		}
	}, process.WithName("consumer"))

	watchdog := process.New(2, 4096, func(p *process.Process) {
		for {
			if !watchdogFlag.Wait(100) {
				logger.Warn("watchdog timeout: consumer made no progress in 100 ticks")
				continue
			}
			logger.Debug("watchdog: consumer is alive", klog.Field("counter", counter))
		}
	}, process.WithName("watchdog"))

	idle := kernel.NewIdleProcess(k)

	for _, p := range []*process.Process{producer, consumer, watchdog, idle} {
		if err := k.Register(p); err != nil {
			log.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}

	go k.Run()

	for i := 0; i < *ticks; i++ {
		time.Sleep(*tickEvery)
		exit := isrguard.Enter(k)
		k.SystemTick()
		exit()
	}

	fmt.Printf("ran %d ticks (tick_count=%d), final counter=%d\n", *ticks, k.TickCount(), counter)
	fmt.Println("per-priority scheduler share (producer, consumer, watchdog, idle):")
	for pr, share := range prof.Snapshot() {
		fmt.Printf("  priority %d: %.2f%%\n", pr, share*100)
	}
}
