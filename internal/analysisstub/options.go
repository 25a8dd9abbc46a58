package analysisstub

import "github.com/okian/neurolens/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFrameAnalyzer replaces the luminance heuristics.
func WithFrameAnalyzer(a FrameAnalyzer) Option {
	return func(s *Server) {
		if a != nil {
			s.analyzer = a
		}
	}
}
