/*
Package monitoring provides metrics collection for the bridge server.

# Overview

Metrics are Prometheus collectors registered on a registry owned by each
Metrics value. They cover HTTP traffic, registry and ledger operations,
metered inference outcomes and the MAT spent on them.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "registry", "deploy")
	uri, err := registry.Deploy(dir, name)
	timer.StopErr(err)
*/
package monitoring
