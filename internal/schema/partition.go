package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// VariablesTable is the partitioned parent of every entity partition.
const VariablesTable = "variables"

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func tableName(name string) string {
	return strings.ToLower(nonIdent.ReplaceAllString(name, "_"))
}

// EntityPartition names the list partition holding one entity's variables.
func EntityPartition(entityID uuid.UUID) string {
	return tableName(VariablesTable + "_" + strings.ReplaceAll(entityID.String(), "-", ""))
}

// MonthPartition names the range partition of parent covering the month of t.
func MonthPartition(parent string, t time.Time) string {
	return tableName(parent + "_p" + t.UTC().Format("200601"))
}

// DefaultPartition names the catch-all range partition of parent.
func DefaultPartition(parent string) string {
	return tableName(parent + "_default")
}

// MonthBounds returns the half open range [from, to) of the month holding t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// https://www.postgresql.org/docs/current/ddl-partitioning.html
type partitionBuilder struct {
	name        string
	parent      string
	bound       string
	partitionBy string
}

func NewPartitionBuilder(name, parent string) *partitionBuilder {
	return &partitionBuilder{
		name:   tableName(name),
		parent: tableName(parent),
	}
}

// ForValuesIn bounds the partition to a single list value.
func (b *partitionBuilder) ForValuesIn(value string) *partitionBuilder {
	b.bound = fmt.Sprintf("FOR VALUES IN (%v)", pq.QuoteLiteral(value))
	return b
}

// ForValuesFromTo bounds the partition to the timestamp range [from, to).
func (b *partitionBuilder) ForValuesFromTo(from, to time.Time) *partitionBuilder {
	b.bound = fmt.Sprintf("FOR VALUES FROM (%v) TO (%v)",
		pq.QuoteLiteral(from.UTC().Format(time.RFC3339)),
		pq.QuoteLiteral(to.UTC().Format(time.RFC3339)))
	return b
}

func (b *partitionBuilder) AsDefault() *partitionBuilder {
	b.bound = "DEFAULT"
	return b
}

// PartitionByRange makes the partition itself a parent, split by range on column.
func (b *partitionBuilder) PartitionByRange(column string) *partitionBuilder {
	b.partitionBy = fmt.Sprintf("PARTITION BY RANGE (%v)", pq.QuoteIdentifier(column))
	return b
}

func (b *partitionBuilder) Build() (string, error) {
	if b.name == "" || b.parent == "" {
		return "", errors.New("partition and parent names required")
	}
	if b.bound == "" {
		return "", errors.New("partition bound required")
	}
	var sb strings.Builder
	// header line
	_, _ = fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %v PARTITION OF %v",
		pq.QuoteIdentifier(b.name), pq.QuoteIdentifier(b.parent))
	_, _ = fmt.Fprintf(&sb, "\n  %v", b.bound)
	if b.partitionBy != "" {
		_, _ = fmt.Fprintf(&sb, "\n%v", b.partitionBy)
	}
	return sb.String(), nil
}
