// Package fdcanusb drives the mjbots FdCanUSB CAN-FD adapter over its USB
// serial port.
//
// The adapter speaks an ASCII line protocol: commands like
//
//	can send 8001 0100DEADBEEF b f
//
// are answered with OK, received frames show up as rcv lines and failures
// as ERR lines. The FdCanUSB type is the synchronous call/response driver;
// Bus layers channels on top for monitoring style tooling.
package fdcanusb
