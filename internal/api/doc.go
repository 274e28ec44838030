// Package api is the HTTP face of the service.
//
// Intake holds the request logic (validation, job creation, enqueueing)
// and is usable without HTTP. Server maps it onto routes:
//
//	POST /api/convert/pdf           queue a PDF job         201 {jobId, status}
//	GET  /api/convert/pdf/{jobId}   job status              200 | 404
//	POST /api/convert/html          synchronous HTML        200 {html}
//	GET  /ws?sessionId=...          progress websocket
//	GET  /health, /health/ready, /health/live
//
// Errors are JSON bodies {"error": "..."} whose status code is chosen with
// errors.Is against the sentinel errors of md2pdf, job and this package.
package api
