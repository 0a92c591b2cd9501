// Package api hosts the console's HTTP surface. Notable routes:
//   - GET / renders the whole dashboard; GET /fragments/jobs and
//     /fragments/status re-render the live parts. The jobs fragment carries
//     an ETag derived from the store version.
//   - POST /jobs and /jobs/{job_id}/{action} forward job commands.
//   - /reports/... drive the reporting controller.
//   - GET /healthz / readyz for probes and GET /metrics for Prometheus.
package api
