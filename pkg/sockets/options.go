package sockets

import "time"

func WithPingInterval(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.pingInterval = d
	}
}

func WithWriteTimeout(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.writeTimeout = d
	}
}

func WithQueueSize(n int) func(*Session) {
	return func(s *Session) {
		s.out = make(chan any, n)
	}
}

func OnClose(fn func()) func(*Session) {
	return func(s *Session) {
		s.onClose = fn
	}
}
