// Package chat is the ruggine coordination server: shared state, command handlers and
// the per-connection state machine.
//
// A Store owns every identity, group and invite behind one RWMutex. Handlers ask the
// Store for the frames a request produces and push them onto per-connection Outboxes
// after the lock is released, so no lock is ever held across socket I/O. Each
// connection has one reader (ServeConn) and one writer draining its Outbox.
package chat
