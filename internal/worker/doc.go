// Package worker turns queued jobs into PDFs.
//
// A Worker runs one job through four stages (parsing, rendering,
// generating, complete), recording progress in the job store and
// publishing it to the submitting session after each one. Any error or
// panic fails the job; the worker itself never retries.
//
// A Pool runs several workers' worth of slots against a queue. Each slot
// handles its deliveries strictly one at a time.
package worker
