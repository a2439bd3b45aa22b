// Package resource shares limits between runtimes in one process.
//
// A Controller tracks a memory budget that pool managers reserve their
// backing blocks from, and a number of inference pass slots that bounds how
// many runtimes execute a graph at the same time. A nil *Controller is valid
// and enforces nothing.
package resource
