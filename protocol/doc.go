// Package protocol implements the client side of the Alger wire
// protocol: one persistent duplex WebSocket carrying JSON frames
// {id, requestId, type, content}. The client owns the connection
// lifecycle, the outbound sequence counter, and inbound frame decoding
// and dispatch; coordinators register handlers per type code.
package protocol
