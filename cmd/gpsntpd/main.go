/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	syscall "golang.org/x/sys/unix"

	"github.com/pulsetime/gpsntp/daemon"
	"github.com/pulsetime/gpsntp/gnss"
	"github.com/pulsetime/gpsntp/ntp/responder/server"
	"github.com/pulsetime/gpsntp/pps"
	"github.com/pulsetime/gpsntp/rtc"
)

const pprofHTTP = "localhost:6060"

func main() {
	var (
		debugger       bool
		logLevel       string
		configPath     string
		ips            server.MultiIPs
		port           int
		workers        int
		monitoringPort int
	)

	flag.StringVar(&configPath, "config", "", "Path to a config file. Defaults are used if empty")
	flag.StringVar(&logLevel, "loglevel", "info", "Set a log level. Can be: trace, debug, info, warning, error")
	flag.Var(&ips, "ip", fmt.Sprintf("IP to listen to. Repeat for multiple. Default: %s", server.DefaultServerIPs))
	flag.IntVar(&port, "port", server.DefaultPort, "Port to run service on")
	flag.IntVar(&workers, "workers", server.DefaultWorkers, "How many workers (routines) to run")
	flag.IntVar(&monitoringPort, "monitoringport", 0, "Port to run monitoring server on")
	flag.BoolVar(&debugger, "pprof", false, "Enable pprof")
	flag.Parse()

	cfg := daemon.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = daemon.ReadConfig(configPath); err != nil {
			log.Fatalf("Reading config from %q: %v", configPath, err)
		}
	}
	// flags set explicitly win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ip":
			cfg.Server.IPs = ips
		case "port":
			cfg.Server.Port = port
		case "workers":
			cfg.Server.Workers = workers
		case "monitoringport":
			cfg.MonitoringPort = monitoringPort
		}
	})

	if err := daemon.SetupLogging(logLevel, cfg.LogSyslog); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config is invalid: %v", err)
	}

	if debugger {
		log.Warningf("Staring profiler on %s", pprofHTTP)
		go func() {
			log.Println(http.ListenAndServe(pprofHTTP, nil))
		}()
	}

	d, err := daemon.New(cfg, pps.RealtimeTicks{})
	if err != nil {
		log.Fatalf("Creating daemon: %v", err)
	}

	ppsDev, err := pps.Open(cfg.PPS.Device, cfg.PPS.Edge)
	if err != nil {
		log.Fatal(err)
	}
	defer ppsDev.Close()

	nmea, err := gnss.Open(cfg.GNSS.Device, cfg.GNSS.BaudRate)
	if err != nil {
		log.Fatal(err)
	}
	defer nmea.Close()

	var rtcDev rtc.Device
	if cfg.RTC.Enable {
		r, err := rtc.OpenSystemRTC()
		if err != nil {
			log.Fatal(err)
		}
		rtcDev = r
	}

	// Handle interrupt for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	if err := d.Run(ctx, ppsDev, nmea, rtcDev); err != nil {
		log.Errorf("Internal error shutdown: %v", err)
		cancel()
		ppsDev.Close()
		nmea.Close()
		os.Exit(1)
	}
	log.Warning("Graceful shutdown")
}
