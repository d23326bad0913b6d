package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harmonyfs/harmony/internal/metrics"
)

type serveMetricsCmd struct {
	Addr string `help:"Address to listen on." default:"localhost:9469"`
}

func (c *serveMetricsCmd) Run() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	fmt.Printf("Serving metrics on http://%s/metrics\n", c.Addr)
	return http.ListenAndServe(c.Addr, mux)
}
