package streamval

import "encoding/json"

// marshalHeaderFrame renders the base codec's parts array as the single
// header frame line (no trailing newline).
func marshalHeaderFrame(parts []json.RawMessage) ([]byte, error) {
	return json.Marshal(parts)
}

// marshalBodyFrame renders one [id, status, payload] body frame line,
// where payload is itself a base-codec parts array.
func marshalBodyFrame(id int64, status Status, payload []json.RawMessage) ([]byte, error) {
	payloadArr, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal([3]any{id, int(status), json.RawMessage(payloadArr)})
}

// parseBodyFrame parses one body frame line into its three fields.
// Malformed shape is reported as a *StructuralError per §7.5.
func parseBodyFrame(line []byte) (id int64, status Status, payload []json.RawMessage, err error) {
	var raw [3]json.RawMessage
	if e := json.Unmarshal(line, &raw); e != nil {
		return 0, 0, nil, &StructuralError{Line: string(line), Err: e}
	}
	var idVal int64
	if e := json.Unmarshal(raw[0], &idVal); e != nil {
		return 0, 0, nil, &StructuralError{Line: string(line), Err: e}
	}
	var statusVal int
	if e := json.Unmarshal(raw[1], &statusVal); e != nil {
		return 0, 0, nil, &StructuralError{Line: string(line), Err: e}
	}
	var payloadParts []json.RawMessage
	if e := json.Unmarshal(raw[2], &payloadParts); e != nil {
		return 0, 0, nil, &StructuralError{Line: string(line), Err: e}
	}
	return idVal, Status(statusVal), payloadParts, nil
}
