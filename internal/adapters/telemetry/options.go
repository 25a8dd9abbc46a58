package telemetry

import "github.com/okian/neurolens/pkg/logger"

// Option applies a configuration option to the Dialer.
type Option func(*Dialer)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dialer) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithOutboundBuffer bounds messages waiting for the socket writer.
func WithOutboundBuffer(size int) Option {
	return func(d *Dialer) {
		if size > 0 {
			d.outboundBuffer = size
		}
	}
}

// WithInboundBuffer bounds decoded feedback waiting for the module.
func WithInboundBuffer(size int) Option {
	return func(d *Dialer) {
		if size > 0 {
			d.inboundBuffer = size
		}
	}
}

// WithEnvelopeAudio sends audio blocks as {"task","audio"} JSON instead of a bare string.
func WithEnvelopeAudio(enabled bool) Option {
	return func(d *Dialer) {
		d.envelopeAudio = enabled
	}
}

// WithOrigin sets the Origin header presented during the handshake.
func WithOrigin(origin string) Option {
	return func(d *Dialer) {
		if origin != "" {
			d.origin = origin
		}
	}
}
