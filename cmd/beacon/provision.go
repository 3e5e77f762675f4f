// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/beaconkit/beacon/pkg/config"
	"github.com/beaconkit/beacon/pkg/provision"
)

// runProvision prints ready-to-use collector configuration for the
// requested target, derived from the loaded Beacon config.
func runProvision(global globalFlags, cfg *config.Config, args []string) {
	if len(args) != 1 {
		NewInvalidArgumentError("provision", "expected exactly one target").PrintError(global.JSON)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		NewConfigError(err, configPath(global.ConfigArgs)).PrintError(global.JSON)
		os.Exit(1)
	}

	var (
		output string
		err    error
	)
	switch args[0] {
	case "prometheus":
		output, err = provision.PrometheusScrapeConfig(global.Service, cfg.Metrics)
	case "grafana":
		host := cfg.Metrics.Host
		if host == "0.0.0.0" || host == "::" || host == "" {
			host = "localhost"
		}
		addr := net.JoinHostPort(host, strconv.Itoa(cfg.Metrics.Port))
		output, err = provision.GrafanaDatasource("http://" + addr)
	case "filebeat":
		output, err = provision.FilebeatConfig(cfg.Pipeline, "localhost:5044")
	case "logstash":
		output = provision.LogstashPipeline(cfg.Pipeline)
	default:
		NewInvalidArgumentError(args[0], "unknown provision target").PrintError(global.JSON)
		os.Exit(1)
	}
	if err != nil {
		PrintSimpleError(err, global.JSON)
		os.Exit(1)
	}

	fmt.Print(output)
}
