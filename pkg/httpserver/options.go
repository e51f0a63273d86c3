package httpserver

import "log/slog"

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceName names the otelhttp server span.
func WithServiceName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.service = name
		}
	}
}

// WithStartHook runs once the listener is bound, with its address.
func WithStartHook(h func(addr string)) Option {
	return func(s *Server) {
		if h != nil {
			s.onStart = append(s.onStart, h)
		}
	}
}
