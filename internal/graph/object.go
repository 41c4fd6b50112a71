package graph

import "encoding/json"

// Object is a decoded Graph API JSON object.
type Object map[string]any

// String returns the string value stored under key, or "" when absent or not a string.
func (o Object) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// Object returns the nested object stored under key, or nil.
func (o Object) Object(key string) Object {
	m, ok := o[key].(map[string]any)
	if !ok {
		return nil
	}
	return Object(m)
}

// Data returns the elements of the "data" array that are objects.
func (o Object) Data() []Object {
	arr, _ := o["data"].([]any)
	out := make([]Object, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, Object(m))
		}
	}
	return out
}

// Raw re-encodes the object as JSON for diagnostics.
func (o Object) Raw() json.RawMessage {
	if o == nil {
		return json.RawMessage("{}")
	}
	b, err := json.Marshal(o)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}
