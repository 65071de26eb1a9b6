// Package server hosts the Fiber HTTP service and its middleware chain:
// panic recovery, request ids, bearer authentication and the mapping from
// domain errors to JSON responses. Route handlers live in server/routes and
// receive their dependencies explicitly, so keep exports narrow.
package server
