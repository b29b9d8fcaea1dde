// Package remote talks to a this.me daemon.
//
// Client posts GraphQL queries and mutations over HTTP and keeps a small
// local State (daemon status and known identities) that subscribers are
// notified about. Subscribe holds a websocket push channel open and
// reconnects after a fixed delay when it drops.
package remote
