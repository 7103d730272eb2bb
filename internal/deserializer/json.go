// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

package deserializer

import "encoding/json"

// JSON decodes each record value as a JSON array of fields. A value
// that isn't a valid JSON array is treated as unparseable (nil, nil),
// triggering the skip-and-commit path in VirtualConsumer.nextMessage.
type JSON struct{}

func (JSON) Deserialize(_, value []byte) ([]interface{}, error) {
	var fields []interface{}
	if err := json.Unmarshal(value, &fields); err != nil {
		return nil, nil
	}
	return fields, nil
}

// Raw passes the record bytes through as a single field, key included
// when non-empty.
type Raw struct{}

func (Raw) Deserialize(key, value []byte) ([]interface{}, error) {
	if len(key) == 0 {
		return []interface{}{value}, nil
	}
	return []interface{}{key, value}, nil
}
