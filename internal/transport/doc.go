// Package transport reads raw telegram streams from serial ports, TCP and
// unix sockets and replay files.
//
// A [Reader] owns one connection. It frames the byte stream with the
// family's bufio.SplitFunc and hands every token to its handler from a
// single goroutine, so telegrams of one connection are dispatched in
// receipt order. Lost connections are re-established with exponential
// backoff until the context is cancelled.
//
// Endpoints are URLs:
//
//	serial:///dev/ttyUSB0?baud=57600   EnOcean USB 300 (ESP3)
//	serial:///dev/ttyUSB1?baud=115200  DSMR P1 port
//	tcp://localhost:6720               knxd
//	unix:///run/knxd                   knxd
//	file:///var/lib/captures/p1.txt    replay, stops at end of file
package transport
