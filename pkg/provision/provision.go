// SPDX-License-Identifier: Apache-2.0
// Package provision generates configuration for the external collectors
// and dashboards a Beacon-instrumented service is wired to: a Prometheus
// scrape job, a Grafana datasource, and a Filebeat/Logstash pair whose
// grok rule matches the line grammar the pipeline parses.
package provision

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/beaconkit/beacon/pkg/config"
)

// GrokPattern is the Logstash rule equivalent to the pkg/logline grammar.
const GrokPattern = `%{TIMESTAMP_ISO8601:timestamp} %{LOGLEVEL:level} \[%{DATA:logger}\] - %{GREEDYDATA:message}`

type prometheusFile struct {
	Global        prometheusGlobal `yaml:"global"`
	ScrapeConfigs []scrapeConfig   `yaml:"scrape_configs"`
}

type prometheusGlobal struct {
	ScrapeInterval string `yaml:"scrape_interval"`
}

type scrapeConfig struct {
	JobName       string         `yaml:"job_name"`
	MetricsPath   string         `yaml:"metrics_path"`
	StaticConfigs []staticConfig `yaml:"static_configs"`
}

type staticConfig struct {
	Targets []string `yaml:"targets"`
}

// PrometheusScrapeConfig renders a prometheus.yml scraping the service's
// metrics endpoint at the configured aggregation step.
func PrometheusScrapeConfig(jobName string, cfg config.MetricsConfig) (string, error) {
	interval := promDuration(cfg.StepDuration())
	out := prometheusFile{
		Global: prometheusGlobal{ScrapeInterval: interval},
		ScrapeConfigs: []scrapeConfig{
			{
				JobName:     jobName,
				MetricsPath: "/metrics",
				StaticConfigs: []staticConfig{
					{Targets: []string{fmt.Sprintf("%s:%d", scrapeHost(cfg.Host), cfg.Port)}},
				},
			},
		},
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type datasourceFile struct {
	APIVersion  int          `yaml:"apiVersion"`
	Datasources []datasource `yaml:"datasources"`
}

type datasource struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Access    string `yaml:"access"`
	URL       string `yaml:"url"`
	IsDefault bool   `yaml:"isDefault"`
}

// GrafanaDatasource renders a Grafana provisioning file pointing at the
// Prometheus instance scraping this service.
func GrafanaDatasource(prometheusURL string) (string, error) {
	out := datasourceFile{
		APIVersion: 1,
		Datasources: []datasource{
			{
				Name:      "Prometheus",
				Type:      "prometheus",
				Access:    "proxy",
				URL:       prometheusURL,
				IsDefault: true,
			},
		},
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type filebeatFile struct {
	Inputs []filebeatInput `yaml:"filebeat.inputs"`
	Output filebeatOutput  `yaml:"output.logstash"`
}

type filebeatInput struct {
	Type    string   `yaml:"type"`
	Enabled bool     `yaml:"enabled"`
	Paths   []string `yaml:"paths"`
}

type filebeatOutput struct {
	Hosts []string `yaml:"hosts"`
}

// FilebeatConfig renders a filebeat.yml tailing the pipeline source and
// forwarding to Logstash.
func FilebeatConfig(cfg config.PipelineConfig, logstashHost string) (string, error) {
	out := filebeatFile{
		Inputs: []filebeatInput{
			{Type: "log", Enabled: true, Paths: []string{cfg.Source}},
		},
		Output: filebeatOutput{Hosts: []string{logstashHost}},
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LogstashPipeline renders a Logstash pipeline definition: beats input,
// a grok filter for the line grammar, and an Elasticsearch output with
// daily indices. Logstash pipeline files use their own DSL, not YAML.
func LogstashPipeline(cfg config.PipelineConfig) string {
	var b strings.Builder
	b.WriteString("input {\n  beats {\n    port => 5044\n  }\n}\n\n")
	fmt.Fprintf(&b, "filter {\n  grok {\n    match => { \"message\" => \"%s\" }\n  }\n", GrokPattern)
	b.WriteString("  date {\n    match => [ \"timestamp\", \"ISO8601\" ]\n  }\n}\n\n")
	fmt.Fprintf(&b, "output {\n  elasticsearch {\n    hosts => [ \"%s\" ]\n    index => \"%s-%%{+YYYY.MM.dd}\"\n  }\n}\n",
		cfg.Elasticsearch.URL, cfg.Elasticsearch.Index)
	return b.String()
}

// promDuration renders a duration the way Prometheus expects (60s, 5m).
func promDuration(d time.Duration) string {
	if d%time.Minute == 0 && d >= time.Minute {
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}

// scrapeHost rewrites wildcard binds to a host a collector can reach.
func scrapeHost(host string) string {
	if host == "0.0.0.0" || host == "::" || host == "" {
		return "localhost"
	}
	return host
}
