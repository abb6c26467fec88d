// Package bridge exposes a router to remote view adapters over WebSocket.
//
// Every router event is broadcast to connected clients as a JSON Message.
// Clients drive the router with Commands:
//
//	{"type":"visit","id":"1","href":"/users","method":"GET","data":{"page":2}}
//	{"type":"reload","only":["stats"]}
//	{"type":"back"}
//	{"type":"cancel","visitId":"..."}
//
// Each command is answered with an ack or error Message carrying the
// command's id. A client receives a page snapshot as soon as it connects.
package bridge
