package broker

import "go.uber.org/zap"

// DispatcherStream owns an endpoint returned by Client.RequestStream and
// releases it exactly once when closed.
type DispatcherStream struct {
	client   *Client
	endpoint string
}

// Endpoint returns the subscribable address handed back by the dispatcher.
func (s *DispatcherStream) Endpoint() string { return s.endpoint }

// Close releases the stream. Failures to reach the dispatcher are logged,
// never returned (spec §4.9 "errors on delete are logged only") — the
// stream is considered released either way.
func (s *DispatcherStream) Close() error {
	if err := s.client.removeStream(s.endpoint); err != nil {
		s.client.logger.Warn("broker: remove stream failed",
			zap.String("endpoint", s.endpoint), zap.Error(err))
	}

	return nil
}
