package planner

import (
	"fmt"
	"strings"
)

type PartitioningScheme int

const (
	UnknownPartitioningScheme PartitioningScheme = iota
	RoundRobinBatchScheme
	HashScheme
)

func (s PartitioningScheme) String() string {
	switch s {
	case RoundRobinBatchScheme:
		return "RoundRobinBatch"
	case HashScheme:
		return "Hash"
	}
	return "UnknownPartitioning"
}

// Partitioning describes how an operator's output is split into partitions.
type Partitioning struct {
	Scheme PartitioningScheme
	Count  int
	Exprs  []Expr // hash keys, HashScheme only
}

func NewRoundRobinPartitioning(n int) Partitioning {
	return Partitioning{Scheme: RoundRobinBatchScheme, Count: n}
}

func NewHashPartitioning(exprs []Expr, n int) Partitioning {
	return Partitioning{Scheme: HashScheme, Count: n, Exprs: exprs}
}

func NewUnknownPartitioning(n int) Partitioning {
	return Partitioning{Scheme: UnknownPartitioningScheme, Count: n}
}

// PartitionCount returns the number of output partitions.
func (p Partitioning) PartitionCount() int {
	return p.Count
}

// Equal compares scheme, count and hash keys.
func (p Partitioning) Equal(other Partitioning) bool {
	if p.Scheme != other.Scheme || p.Count != other.Count || len(p.Exprs) != len(other.Exprs) {
		return false
	}
	for i := range p.Exprs {
		if !ExprEqual(p.Exprs[i], other.Exprs[i]) {
			return false
		}
	}
	return true
}

func (p Partitioning) String() string {
	switch p.Scheme {
	case RoundRobinBatchScheme:
		return fmt.Sprintf("RoundRobinBatch(%d)", p.Count)
	case HashScheme:
		return fmt.Sprintf("Hash(%s, %d)", exprList(p.Exprs), p.Count)
	}
	return fmt.Sprintf("UnknownPartitioning(%d)", p.Count)
}

type DistributionKind int

const (
	UnspecifiedDistribution DistributionKind = iota
	SinglePartitionDistribution
	HashPartitionedDistribution
)

// Distribution is the partitioning an operator requires of one of its inputs.
type Distribution struct {
	Kind  DistributionKind
	Exprs []Expr // HashPartitionedDistribution only
}

var (
	UnspecifiedDist = Distribution{Kind: UnspecifiedDistribution}
	SinglePartition = Distribution{Kind: SinglePartitionDistribution}
)

func HashPartitioned(exprs []Expr) Distribution {
	return Distribution{Kind: HashPartitionedDistribution, Exprs: exprs}
}

// IsSinglePartition reports whether the distribution demands one partition.
func (d Distribution) IsSinglePartition() bool {
	return d.Kind == SinglePartitionDistribution
}

func (d Distribution) String() string {
	switch d.Kind {
	case SinglePartitionDistribution:
		return "SinglePartition"
	case HashPartitionedDistribution:
		return fmt.Sprintf("HashPartitioned(%s)", exprList(d.Exprs))
	}
	return "Unspecified"
}

func exprList(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
