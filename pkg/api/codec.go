package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CodecName matches the codec Connect selects for application/json.
const CodecName = "json"

// JSONCodec is a connect.Codec for the plain Go message structs in this
// package. Unknown fields are rejected.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecName }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("invalid %T: %w", msg, err)
	}
	return nil
}

// MarshalStable lets Connect send idempotent calls as GET requests.
func (c JSONCodec) MarshalStable(msg any) ([]byte, error) {
	return c.Marshal(msg)
}

func (JSONCodec) IsBinary() bool { return false }
