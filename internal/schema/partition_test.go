package schema

import (
	"testing"
	"time"

	"github.com/franela/goblin"
	"github.com/google/uuid"
)

func TestPartitionBuilder(t *testing.T) {
	g := goblin.Goblin(t)
	entityID := uuid.MustParse("0a1b2c3d-4e5f-6a7b-8c9d-0e1f2a3b4c5d")

	g.Describe("The partition names", func() {
		g.It("Should derive the entity partition from the id", func() {
			g.Assert(EntityPartition(entityID)).Eql("variables_0a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d")
		})
		g.It("Should name monthly and default partitions", func() {
			parent := EntityPartition(entityID)
			at := time.Date(2026, 2, 17, 23, 0, 0, 0, time.UTC)
			g.Assert(MonthPartition(parent, at)).Eql(parent + "_p202602")
			g.Assert(DefaultPartition(parent)).Eql(parent + "_default")
		})
		g.It("Should bound a month half open", func() {
			from, to := MonthBounds(time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC))
			g.Assert(from).Eql(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC))
			g.Assert(to).Eql(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
		})
	})

	g.Describe("Given a partition, the PartitionBuilder", func() {
		g.It("Should produce a list partition that is itself range partitioned", func() {
			expected := `CREATE TABLE IF NOT EXISTS "variables_0a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d" PARTITION OF "variables"` + "\n" +
				`  FOR VALUES IN ('0a1b2c3d-4e5f-6a7b-8c9d-0e1f2a3b4c5d')` + "\n" +
				`PARTITION BY RANGE ("registered_at")`
			result, err := NewPartitionBuilder(EntityPartition(entityID), VariablesTable).
				ForValuesIn(entityID.String()).
				PartitionByRange("registered_at").
				Build()
			g.Assert(err).IsNil()
			g.Assert(result).Eql(expected)
		})
		g.It("Should produce a monthly range partition", func() {
			expected := `CREATE TABLE IF NOT EXISTS "variables_x_p202610" PARTITION OF "variables_x"` + "\n" +
				`  FOR VALUES FROM ('2026-10-01T00:00:00Z') TO ('2026-11-01T00:00:00Z')`
			from, to := MonthBounds(time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC))
			result, err := NewPartitionBuilder("variables_x_p202610", "variables_x").
				ForValuesFromTo(from, to).
				Build()
			g.Assert(err).IsNil()
			g.Assert(result).Eql(expected)
		})
		g.It("Should produce a default partition", func() {
			result, err := NewPartitionBuilder("variables_x_default", "variables_x").AsDefault().Build()
			g.Assert(err).IsNil()
			g.Assert(result).Eql(`CREATE TABLE IF NOT EXISTS "variables_x_default" PARTITION OF "variables_x"` + "\n  DEFAULT")
		})
		g.It("Should sanitize names", func() {
			result, err := NewPartitionBuilder("Variables-X", "variables").AsDefault().Build()
			g.Assert(err).IsNil()
			g.Assert(result).Eql(`CREATE TABLE IF NOT EXISTS "variables_x" PARTITION OF "variables"` + "\n  DEFAULT")
		})
		g.It("Should require a bound", func() {
			_, err := NewPartitionBuilder("variables_x", "variables").Build()
			g.Assert(err == nil).IsFalse()
		})
	})

	g.Describe("The bootstrap schema", func() {
		g.It("Should exist for both drivers", func() {
			for _, driver := range []string{"postgres", "sqlite"} {
				stmts, err := Bootstrap(driver)
				g.Assert(err).IsNil()
				g.Assert(len(stmts) > 0).IsTrue()
			}
			_, err := Bootstrap("mysql")
			g.Assert(err == nil).IsFalse()
		})
	})
}
