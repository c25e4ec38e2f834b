// Package engine runs work queues asynchronously on registered backends.
// It records every run in the store, resolves the backend from the run's
// policy and the queue's capabilities, bounds each run with a timeout and
// streams progress events to subscribers while persisting them.
package engine
