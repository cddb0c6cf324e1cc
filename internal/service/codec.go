package service

import "encoding/json"

// jsonCodec carries the plain Go messages of this package over Connect.
// It registers under the name "json", so both the Connect protocol
// (application/json) and gRPC-Web JSON clients reach the handlers.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
