package workerpool

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// State is the serialized form of a task. It is the only thing exchanged
// with a worker, in both directions.
type State struct {
	ID         uint64 `msgpack:"id"`
	Source     string `msgpack:"source"`
	Parameters []any  `msgpack:"parameters"`
	Result     any    `msgpack:"result,omitempty"`
	Err        string `msgpack:"err,omitempty"`
}

func (s State) encode() ([]byte, error) {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encoding task %d: %w", s.ID, err)
	}
	return data, nil
}

func decodeState(data []byte) (State, error) {
	var s State
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&s); err != nil {
		return State{}, fmt.Errorf("decoding task state: %w", err)
	}
	return s, nil
}

// result converts the state into what the callback receives.
func (s State) result() Result {
	if s.Err != "" {
		return Result{Err: errors.New(s.Err)}
	}
	return Result{Value: s.Result}
}
