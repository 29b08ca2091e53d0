// Package dedupe tracks recently seen message IDs so that a message delivered
// twice (a realtime echo of a sent message, a redelivery after reconnect) is
// applied to client state only once.
package dedupe
