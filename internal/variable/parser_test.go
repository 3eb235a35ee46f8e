package variable

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/franela/goblin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func TestParseStream(t *testing.T) {
	g := goblin.Goblin(t)
	owner := Owner{
		EntityID:     uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		InstanceID:   uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
		RegisteredAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}

	g.Describe("The stream parser", func() {
		g.It("Should parse json into variables", func() {
			file, err := os.Open("../../resources/test/data/variables.json")
			g.Assert(err).IsNil()
			defer file.Close()
			var recorded []Variable
			var recordCnt int
			err = ParseStream(file, owner, func(variables []Variable) error {
				recorded = append(recorded, variables...)
				recordCnt++
				return nil
			}, 1000)
			g.Assert(err).IsNil()
			g.Assert(recordCnt).Eql(1)
			g.Assert(len(recorded)).Eql(9)

			g.Assert(recorded[0].Name).Eql("email")
			g.Assert(recorded[0].Indexed).IsTrue()
			g.Assert(recorded[0].EntityID).Eql(owner.EntityID)
			g.Assert(recorded[0].InstanceID).Eql(owner.InstanceID)
			g.Assert(recorded[0].RegisteredAt).Eql(owner.RegisteredAt)
			s, ok := recorded[0].AsString()
			g.Assert(ok).IsTrue()
			g.Assert(s).Eql("alice@example.com")

			i, ok := recorded[1].AsInt()
			g.Assert(ok).IsTrue()
			g.Assert(i).Eql(int64(30))

			doc, ok := recorded[4].AsJSON()
			g.Assert(ok).IsTrue()
			g.Assert(doc["theme"]).Eql("dark")

			g.Assert(recorded[5].Sensitive).IsTrue()
			b, ok := recorded[6].AsBinary()
			g.Assert(ok).IsTrue()
			g.Assert(b).Eql([]byte{0, 1, 2})
			g.Assert(recorded[7].Encrypted).IsTrue()

			g.Assert(recorded[8].Type()).Eql(TypeString)
			g.Assert(recorded[8].Value.IsNull()).IsTrue()
		})
		g.It("Should parse in multiple batches", func() {
			file, err := os.Open("../../resources/test/data/variables.json")
			g.Assert(err).IsNil()
			defer file.Close()
			var recorded []Variable
			var recordCnt int
			err = ParseStream(file, owner, func(variables []Variable) error {
				recorded = append(recorded, variables...)
				recordCnt++
				return nil
			}, 4)
			g.Assert(err).IsNil()
			g.Assert(recordCnt).Eql(3, "Expected three batches because batchsize was smaller than variable count")
			g.Assert(len(recorded)).Eql(9)
			g.Assert(recorded[0].Name).Eql("email")
			g.Assert(recorded[8].Name).Eql("nickname")
		})
		g.It("Should handle empty input", func() {
			var recorded []Variable
			err := ParseStream(bytes.NewReader(nil), owner, func(variables []Variable) error {
				recorded = append(recorded, variables...)
				return nil
			}, 1000)
			g.Assert(err).IsNil()
			g.Assert(len(recorded)).Eql(0)
		})

		g.Describe("Should reject invalid variables", func() {
			g.It("unknown type tags", func() {
				err := ParseStream(strings.NewReader(`[{"name": "price", "type": "DECIMAL", "value": 1}]`), owner,
					func(variables []Variable) error { return nil }, 10)
				g.Assert(errors.Is(err, ErrUnsupportedType)).IsTrue()
			})
			g.It("values not matching their type", func() {
				err := ParseStream(strings.NewReader(`[{"name": "age", "type": "INTEGER", "value": 30.5}]`), owner,
					func(variables []Variable) error { return nil }, 10)
				g.Assert(errors.Is(err, ErrInvalidValue)).IsTrue()
			})
			g.It("missing names", func() {
				err := ParseStream(strings.NewReader(`[{"type": "STRING", "value": "x"}]`), owner,
					func(variables []Variable) error { return nil }, 10)
				g.Assert(err == nil).IsFalse()
			})
			g.It("and stop at the first bad element", func() {
				var emitted int
				err := ParseStream(strings.NewReader(`[
					{"name": "a", "type": "STRING", "value": "x"},
					{"name": "b", "type": "BOOLEAN", "value": "nope"},
					{"name": "c", "type": "STRING", "value": "y"}
				]`), owner, func(variables []Variable) error {
					emitted += len(variables)
					return nil
				}, 1)
				g.Assert(errors.Is(err, ErrInvalidValue)).IsTrue()
				g.Assert(emitted).Eql(1)
			})
		})

		g.It("Should surface emitter errors", func() {
			boom := errors.New("boom")
			err := ParseStream(strings.NewReader(`[{"name": "a", "type": "STRING", "value": "x"}]`), owner,
				func(variables []Variable) error { return boom }, 1)
			g.Assert(err).Eql(boom)
		})
	})
}
