// Package imghost publishes image payloads to temporary public URLs so
// that vision backends which only accept URL input can fetch them.
//
// A Publisher walks a prioritized list of hosting backends with a
// per-backend timeout and returns the first URL obtained. Backends
// include third-party anonymous hosts (catbox.moe, 0x0.st) and a
// self-serve mode that caches the bytes in-process and hands out signed
// URLs pointing back at the admin HTTP server.
package imghost
