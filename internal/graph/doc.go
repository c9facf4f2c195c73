// Package graph holds pure helpers over the dependency relation between
// records: resolution checks, dependent lookup, cycle detection and the
// ordering used to pick the next task.
package graph
