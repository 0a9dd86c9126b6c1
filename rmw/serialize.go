package rmw

import (
	"github.com/c360/ddsbridge/errors"
	"github.com/c360/ddsbridge/typesupport"
)

// Serialize encodes msg into the wire form its type support dictates,
// without involving any endpoint.
func (c *Context) Serialize(ts *typesupport.TypeSupport, msg any) ([]byte, error) {
	data, err := c.transport.SerializeMessage(ts, msg)
	if err != nil {
		return nil, errors.Wrap(err, "Context", "Serialize", "serialize message")
	}
	return data, nil
}

// Deserialize decodes data into msg using its type support
func (c *Context) Deserialize(ts *typesupport.TypeSupport, data []byte, msg any) error {
	if err := c.transport.DeserializeMessage(ts, data, msg); err != nil {
		return errors.Wrap(err, "Context", "Deserialize", "deserialize message")
	}
	return nil
}
