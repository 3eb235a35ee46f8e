package variable

import (
	"io"

	"github.com/bcicen/jstream"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// ParseStream reads a JSON array of variable requests for owner and emits them
// in batches of at most batchSize, in input order.
//
//	[{"name": "email", "type": "STRING", "value": "a@b.c", "indexed": true}]
func ParseStream(reader io.Reader, owner Owner, emitVariables func(variables []Variable) error, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	decoder := jstream.NewDecoder(reader, 1)
	stream := decoder.Stream()
	variables := make([]Variable, 0, batchSize)

	for mv := range stream {
		v, err := asVariable(mv, owner)
		if err == nil {
			variables = append(variables, v)
			if len(variables) == batchSize {
				err = emitVariables(variables)
				variables = make([]Variable, 0, batchSize)
			}
		}
		if err != nil {
			// let the decoder goroutine finish
			for range stream {
			}
			return err
		}
	}
	if err := decoder.Err(); err != nil {
		return errors.Wrap(err, "parsing variables")
	}

	if len(variables) > 0 {
		// leftovers
		return emitVariables(variables)
	}
	return nil
}

func asVariable(mv *jstream.MetaValue, owner Owner) (Variable, error) {
	raw, ok := mv.Value.(map[string]interface{})
	if !ok {
		return Variable{}, errors.Wrapf(ErrInvalidValue, "expected a variable object at offset %d", mv.Offset)
	}
	name, _ := raw["name"].(string)
	tag, _ := raw["type"].(string)
	t, err := ParseType(tag)
	if err != nil {
		return Variable{}, errors.Wrapf(err, "variable %q", name)
	}
	value, err := FromJSON(t, raw["value"])
	if err != nil {
		return Variable{}, errors.Wrapf(err, "variable %q", name)
	}

	var opts []Option
	if cast.ToBool(raw["indexed"]) {
		opts = append(opts, Indexed())
	}
	if cast.ToBool(raw["sensitive"]) {
		opts = append(opts, Sensitive())
	}
	if cast.ToBool(raw["encrypted"]) {
		opts = append(opts, Encrypted())
	}
	return New(owner, name, value, opts...)
}
