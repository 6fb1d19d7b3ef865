package redis

import (
	"encoding/json"
	"fmt"

	"scrolls/model"
)

// redisArg renders a model.Value as the text/byte argument go-redis sends
// on the wire: a plain string, a decimal-text big integer, raw CBOR bytes,
// or JSON serialized to compact UTF-8 (§9 — encoding/json.Marshal already
// produces compact output).
func redisArg(v model.Value) (any, error) {
	if s, ok := v.String(); ok {
		return s, nil
	}
	if s, ok := v.BigInt(); ok {
		return s, nil
	}
	if b, ok := v.Bytes(); ok {
		return b, nil
	}
	if j, ok := v.JSON(); ok {
		compact, err := json.Marshal(json.RawMessage(j))
		if err != nil {
			return nil, fmt.Errorf("compact JSON value: %w", err)
		}
		return compact, nil
	}
	return nil, fmt.Errorf("value carries no representation")
}
