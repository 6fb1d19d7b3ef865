package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// commandWire is the shape scripted reducers (and any JSON-speaking
// collaborator) produce: a "command" discriminator plus the fields named
// in the command algebra. Delta fields (and PNCounter's "value") accept
// either a JSON number or a decimal string, the latter covering magnitudes
// beyond safe JS double precision; timestamp accepts a JSON number only.
type commandWire struct {
	Command   string          `json:"command"`
	Set       string          `json:"set"`
	Member    string          `json:"member"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Delta     json.RawMessage `json:"delta"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// DecodeCRDTCommand decodes one JSON-encoded CRDT command, recognizing the
// "command" discriminator and the fields from the wire format. Unknown
// discriminators are reported as an error so the caller can treat them as
// a fatal (Panic-class) stage error.
func DecodeCRDTCommand(raw json.RawMessage) (CRDTCommand, error) {
	var w commandWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return CRDTCommand{}, fmt.Errorf("decode command: %w", err)
	}

	switch w.Command {
	case "SetAdd":
		return CRDTCommand{Kind: SetAdd, Set: w.Set, Member: w.Member}, nil
	case "SetRemove":
		return CRDTCommand{Kind: SetRemove, Set: w.Set, Member: w.Member}, nil
	case "GrowOnlySetAdd":
		return CRDTCommand{Kind: GrowOnlySetAdd, Set: w.Set, Member: w.Member}, nil
	case "TwoPhaseSetAdd":
		return CRDTCommand{Kind: TwoPhaseSetAdd, Set: w.Set, Member: w.Member}, nil
	case "TwoPhaseSetRemove":
		return CRDTCommand{Kind: TwoPhaseSetRem, Set: w.Set, Member: w.Member}, nil
	case "SortedSetAdd":
		delta, err := decodeDelta(w.Delta)
		if err != nil {
			return CRDTCommand{}, err
		}
		return CRDTCommand{Kind: SortedSetAdd, Set: w.Set, Member: w.Member, Delta: delta}, nil
	case "SortedSetRemove":
		delta, err := decodeDelta(w.Delta)
		if err != nil {
			return CRDTCommand{}, err
		}
		return CRDTCommand{Kind: SortedSetRemove, Set: w.Set, Member: w.Member, Delta: delta}, nil
	case "AnyWriteWins":
		v, err := decodeValue(w.Value)
		if err != nil {
			return CRDTCommand{}, err
		}
		return CRDTCommand{Kind: AnyWriteWins, Key: w.Key, Value: v}, nil
	case "LastWriteWins":
		v, err := decodeValue(w.Value)
		if err != nil {
			return CRDTCommand{}, err
		}
		ts, err := decodeTimestamp(w.Timestamp)
		if err != nil {
			return CRDTCommand{}, err
		}
		return CRDTCommand{Kind: LastWriteWins, Key: w.Key, Value: v, Timestamp: ts}, nil
	case "PNCounter":
		delta, err := decodeDelta(w.Value)
		if err != nil {
			return CRDTCommand{}, err
		}
		return CRDTCommand{Kind: PNCounter, Key: w.Key, Delta: delta}, nil
	case "HashCounter":
		delta, err := decodeDelta(w.Delta)
		if err != nil {
			return CRDTCommand{}, err
		}
		return CRDTCommand{Kind: HashCounter, Key: w.Key, Member: w.Member, Delta: delta}, nil
	case "HashSetValue":
		v, err := decodeValue(w.Value)
		if err != nil {
			return CRDTCommand{}, err
		}
		return CRDTCommand{Kind: HashSetValue, Key: w.Key, Member: w.Member, Value: v}, nil
	case "HashUnsetKey":
		return CRDTCommand{Kind: HashUnsetKey, Key: w.Key, Member: w.Member}, nil
	default:
		return CRDTCommand{}, fmt.Errorf("unknown CRDT command discriminator %q", w.Command)
	}
}

// decodeDelta accepts a JSON integer or a stringified integer, per §4.3.2.
func decodeDelta(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing delta/value field")
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		n, err := strconv.ParseInt(asString, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse stringified integer delta %q: %w", asString, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected an integer or stringified integer delta, got %s", raw)
}

func decodeTimestamp(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing timestamp field")
	}
	var ts uint64
	if err := json.Unmarshal(raw, &ts); err != nil {
		return 0, fmt.Errorf("decode timestamp: %w", err)
	}
	return ts, nil
}

func decodeValue(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 {
		return Value{}, fmt.Errorf("missing value field")
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return StringValue(asString), nil
	}
	return JSONValue(raw), nil
}

// EncodeCRDTCommand renders a CRDTCommand to the wire format in §3.4/§4.3.2,
// the inverse of DecodeCRDTCommand for commands that round-trip through
// JSON (the BlockStarting/BlockFinished framing markers are internal and
// are not part of the scripted-reducer wire vocabulary).
func EncodeCRDTCommand(c CRDTCommand) (json.RawMessage, error) {
	w := commandWire{Command: string(c.Kind), Set: c.Set, Member: c.Member, Key: c.Key}
	switch c.Kind {
	case SetAdd, SetRemove, GrowOnlySetAdd, TwoPhaseSetAdd, TwoPhaseSetRem, HashUnsetKey:
		// no Value/Delta/Timestamp fields
	case SortedSetAdd, SortedSetRemove, HashCounter:
		w.Delta = json.RawMessage(strconv.FormatInt(c.Delta, 10))
	case PNCounter:
		w.Value = json.RawMessage(strconv.FormatInt(c.Delta, 10))
	case AnyWriteWins, HashSetValue:
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		w.Value = v
	case LastWriteWins:
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		w.Value = v
		w.Timestamp = json.RawMessage(strconv.FormatUint(c.Timestamp, 10))
	default:
		return nil, fmt.Errorf("command %q is not encodable as scripted-reducer JSON", c.Kind)
	}
	return json.Marshal(w)
}

// DecodeCRDTCommandList decodes either a single command object or a JSON
// array of command objects, as produced by a scripted reducer's apply/undo
// export (§4.3.2 step 2d).
func DecodeCRDTCommandList(raw json.RawMessage) ([]CRDTCommand, error) {
	trimmed := trimLeadingSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode command array: %w", err)
		}
		out := make([]CRDTCommand, 0, len(items))
		for _, item := range items {
			cmd, err := DecodeCRDTCommand(item)
			if err != nil {
				return nil, err
			}
			out = append(out, cmd)
		}
		return out, nil
	}
	cmd, err := DecodeCRDTCommand(raw)
	if err != nil {
		return nil, err
	}
	return []CRDTCommand{cmd}, nil
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}
