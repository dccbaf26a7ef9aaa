package httpserver

import "time"

// ShutdownTimeout bounds the drain on SIGINT/SIGTERM. Requests still running
// when it elapses are dropped; in-flight S3 deletions are already bounded by
// their own shorter timeout.
const ShutdownTimeout = 15 * time.Second
