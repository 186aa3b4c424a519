package journal

import "github.com/hashicorp/go-multierror"

// MultiSink fans every message out to all of its sinks.
type MultiSink []Sink

func (m MultiSink) WriteMessage(topic string, msg []byte) error {
	var result *multierror.Error
	for _, s := range m {
		if err := s.WriteMessage(topic, msg); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (m MultiSink) Close() error {
	var result *multierror.Error
	for _, s := range m {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
