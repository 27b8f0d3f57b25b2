// Package daemon implements jobserver: a unix socket listener that serves
// one protocol request per connection against a registry.Registry.
//
// At most one Server per socket path can be listening. Instances are
// arbitrated by an exclusive lock on "<socket>.lock" taken before the bind;
// a loser gets ErrAlreadyRunning. Beyond what flock and bind provide there
// is no single-instance guarantee, and concurrent autostarts are expected to
// spawn losers that exit straight away.
package daemon
