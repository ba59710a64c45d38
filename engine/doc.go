// Package engine implements the TST device telemetry protocol: a
// registry of devices, interfaces, and in-memory structures; a framed
// message codec; fragmentation and reassembly of oversized payloads;
// and the dispatch loop that turns inbound frames into registry
// mutations and outbound responses.
//
// The engine performs no framing, CRC-protection of the transport,
// authentication, encryption, flow control, or retransmission — each
// call to Rx is assumed to deliver exactly one complete frame, and each
// call to Tx drains exactly one. Those concerns belong to the
// surrounding transport (serial, USB CDC, UART).
package engine
