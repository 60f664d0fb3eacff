// Package billno issues unique bill numbers of the form PREFIX-XXXXXXXXXXX,
// where the suffix is a base-36 snowflake (timestamp, node, sequence).
package billno

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Generator is safe for concurrent use.
type Generator struct {
	node   *snowflake.Node
	prefix string
}

// New returns a generator for prefix. A negative node picks a random node id
// so that instances started without explicit coordination rarely collide;
// the bill_number unique index catches the rest.
func New(prefix string, node int64) (*Generator, error) {
	if node < 0 {
		node = rand.Int64N(1 << snowflake.NodeBits)
	}
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &Generator{node: n, prefix: strings.TrimSpace(prefix)}, nil
}

func (g *Generator) Next() string {
	return g.prefix + "-" + strings.ToUpper(g.node.Generate().Base36())
}
