package grants

import "encoding/json"

// Serializer converts grant payloads to and from their persisted form.
type Serializer interface {
	Serialize(item any) (string, error)
	Deserialize(data string, item any) error
}

type jsonSerializer struct{}

var _ Serializer = jsonSerializer{}

// NewJSONSerializer returns the default JSON payload serializer.
func NewJSONSerializer() Serializer {
	return jsonSerializer{}
}

func (jsonSerializer) Serialize(item any) (string, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (jsonSerializer) Deserialize(data string, item any) error {
	return json.Unmarshal([]byte(data), item)
}
