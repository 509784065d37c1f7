package utils

import (
	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// SequenceGenerator hands out strictly increasing int64 ids for one process.
type SequenceGenerator interface {
	Next() int64
}

type snowflakeSequence struct {
	node *snowflake.Node
}

func NewSnowflakeSequence(nodeID int64) (SequenceGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &snowflakeSequence{node: node}, nil
}

func (s *snowflakeSequence) Next() int64 {
	return s.node.Generate().Int64()
}

// NewKSUID generates a new globally unique, time-sortable id.
func NewKSUID() string {
	return ksuid.New().String()
}
