// Package websocket streams prediction events to WebSocket clients.
package websocket
