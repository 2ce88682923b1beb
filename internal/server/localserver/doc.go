// Package localserver serves the HTTP API on a Unix domain socket.
//
// The socket gives processes on the same host access to the full API,
// including /admin/v1, without going through the TCP listener and its rate
// limit. Access is controlled by file system permissions: the socket is
// created with mode 0600.
//
// A socket file left behind by a crashed process is removed on start. A
// socket that still accepts connections, or a path that is not a socket,
// is an error.
package localserver
