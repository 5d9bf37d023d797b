// Package relay implements the log relay core: a single-threaded readiness
// loop that accepts connections on local unix sockets, reads bounded
// payloads from them and forwards each payload as one datagram to a fixed
// destination.
//
// Token space:
//
//	0                      the outbound writer (one-shot write interest)
//	1 .. maxListener       listening endpoints, fixed at construction
//	maxListener+1 ..       accepted connections, recycled through a slot table
//
// Nothing in this package is safe for concurrent use; the loop is the only
// scheduler. Stats is the exception and may be read from any goroutine.
package relay
