// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command sentryd builds the pipeline described by a configuration
// document and runs it until its sources are exhausted or it is
// signalled, the same "build everything, then run until signalled" shape
// as the teacher's cmd/cc-backend, applied to a log-analysis engine
// instead of an HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/gops/agent"

	"github.com/clusterwatch/sentryd/internal/config"
	"github.com/clusterwatch/sentryd/internal/logging"
	"github.com/clusterwatch/sentryd/internal/pipeline"
	"github.com/clusterwatch/sentryd/internal/runtimeEnv"
)

const version = "dev"

const defaultStatisticsInterval = 5 * time.Minute

var (
	flagConfigFile  string
	flagEnvFile     string
	flagLogLevel    string
	flagLogDateTime bool
	flagGops        bool
	flagVersion     bool
)

func init() {
	flag.StringVar(&flagConfigFile, "config", "./sentryd.yaml", "path to the pipeline configuration document")
	flag.StringVar(&flagEnvFile, "env", "./.env", "path to a .env file loaded into the process environment before startup")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "sets the logging level: [debug, info, warn, err, crit]")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "add date and time to log messages")
	flag.BoolVar(&flagGops, "gops", false, "listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagVersion, "version", false, "show version information and exit")
}

func main() {
	flag.Parse()

	if flagVersion {
		fmt.Println("sentryd", version)
		return
	}

	logging.SetLevel(flagLogLevel)
	logging.SetLogDateTime(flagLogDateTime)

	// See https://github.com/google/gops (runtime overhead is almost zero).
	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			logging.Fatalf("gops/agent.Listen failed: %s", err)
		}
	}

	if err := runtimeEnv.LoadEnv(flagEnvFile); err != nil && !os.IsNotExist(err) {
		logging.Fatalf("loading %s: %s", flagEnvFile, err)
	}

	doc, parserRoot, err := config.LoadAndValidate(flagConfigFile)
	if err != nil {
		logging.Fatalf("loading %s: %s", flagConfigFile, err)
	}

	store, err := pipeline.OpenStore(doc.Persistence)
	if err != nil {
		logging.Fatalf("opening persistence store: %s", err)
	}

	p, err := pipeline.Build(doc, parserRoot, store)
	if err != nil {
		logging.Fatalf("building pipeline: %s", err)
	}

	statInterval := defaultStatisticsInterval
	if doc.StatisticsInterval != "" {
		if d, err := time.ParseDuration(doc.StatisticsInterval); err == nil {
			statInterval = d
		} else {
			logging.Warnf("ignoring invalid StatisticsInterval %q: %s", doc.StatisticsInterval, err)
		}
	}
	stopStats := make(chan struct{})
	go logStatisticsPeriodically(p, statInterval, stopStats)

	runDone := make(chan error, 1)
	go func() {
		runDone <- p.Run()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	runtimeEnv.SystemdNotifiy(true, "running")

	var runErr error
	streamEnded := false
	select {
	case runErr = <-runDone:
		streamEnded = true
	case <-sigs:
		runtimeEnv.SystemdNotifiy(false, "shutting down")
	}

	close(stopStats)
	if err := p.Shutdown(); err != nil {
		logging.Errorf("pipeline: shutdown: %s", err)
	}
	if !streamEnded {
		// Shutdown closed every source, which unblocks the Read call Run
		// was waiting on; Run now returns on its own.
		runErr = <-runDone
	}
	if runErr != nil {
		logging.Fatalf("pipeline: run failed: %s", runErr)
	}

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(25)
	}
	logging.Info("sentryd: graceful shutdown complete")
}

// logStatisticsPeriodically calls LogStatistics on every built detector
// every interval, the process-level driver for §4.4's log_statistics
// contract (no detector schedules its own stats report; the Time Trigger
// only drives DoTimer).
func logStatisticsPeriodically(p *pipeline.Pipeline, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, d := range p.Detectors() {
				d.LogStatistics(d.Name())
			}
		case <-stop:
			return
		}
	}
}
