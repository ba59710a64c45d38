// Package fifo implements the singly-linked owned-buffer queue used for
// every interface's Rx and Tx path. Push walks to the last node rather
// than tracking a tail pointer: transmit queues are short (typically
// under 20 entries), so the simplicity is worth more than the O(1) tail
// insert would buy.
package fifo
