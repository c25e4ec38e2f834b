// Package backend defines the execution contexts that work queues are launched
// on (sequential host, parallel host, device stream), the completion handle
// they report through, and the registry that resolves an execution policy to
// a registered context.
package backend
