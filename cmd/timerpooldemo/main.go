// Command timerpooldemo starts a turbotimer.Scheduler from a YAML config
// file (or defaults, if none is given), schedules a handful of demo
// callbacks, and shuts down cleanly on SIGINT/SIGTERM.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/colinmarc/turbotimer"
)

func main() {
	configPath := flag.String("config", "", "path to a turbotimer YAML config (optional)")
	flag.Parse()

	cfg := turbotimer.DefaultSchedulerConfig()
	if *configPath != "" {
		loaded, err := turbotimer.LoadSchedulerConfig(*configPath, nil)
		if err != nil {
			log.Fatalf("load config %q: %v", *configPath, err)
		}
		cfg = loaded
	}

	opts, err := cfg.ToOptions()
	if err != nil {
		log.Fatalf("resolve config: %v", err)
	}

	s := turbotimer.New()
	if err := s.Start(opts); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}

	for i := 1; i <= 5; i++ {
		i := i
		delay := time.Duration(i) * time.Second
		s.Schedule(func(arg any) {
			log.Printf("demo task %v fired (worker goroutine id %d)", arg, s.WorkerGoroutineID())
		}, i, time.Now().Add(delay))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	s.StopAndJoin()
}
