// Package api holds the small set of types shared between the poller
// backends and the relay core: tokens, interest sets, events and errors.
package api
