package wsutil

import "log/slog"

// SafeSend sends data to a channel without blocking or panicking if the channel is closed.
// If the channel is full or closed, the send is skipped and false is returned. Panics are
// recovered and logged for debugging.
func SafeSend(ch chan []byte, data []byte) (sent bool) {
	if ch == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("SafeSend recovered panic", "tag", "wsutil", "err", r)
			sent = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}
