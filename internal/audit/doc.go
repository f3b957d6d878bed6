// Package audit buffers engine events and relays them to a [Sink] from one
// background goroutine.
//
// The [Dispatcher] either drops on a full buffer (counting drops) or blocks
// the emitter until space frees up or its context ends. Sinks provided here
// write JSON lines, structured zap entries, or a channel. Which events to
// emit is decided by the engine, never by this package.
package audit
