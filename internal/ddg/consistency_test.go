package ddg

import (
	"strings"
	"testing"

	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/ir/irtest"
)

func TestCheckConsistency_Failures(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(g *Graph, x, h NodeID)
		wantErr string
	}{
		{
			name:    "cycle",
			corrupt: func(g *Graph, x, h NodeID) { g.edge(h, x).Weight = 1 },
			wantErr: "found cycle",
		},
		{
			name:    "weight sign",
			corrupt: func(g *Graph, x, h NodeID) { g.Edge(x, h).Weight = -1 },
			wantErr: "sign of edge weight",
		},
		{
			name:    "direction",
			corrupt: func(g *Graph, x, h NodeID) { g.direction = 0 },
			wantErr: "invalid graph direction",
		},
		{
			name: "dangling predecessor",
			corrupt: func(g *Graph, x, h NodeID) {
				n := g.nodes[h]
				n.predecessors = append(n.predecessors, &Edge{From: x, To: h})
			},
			wantErr: "incoming edge was not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := irtest.NewPlatform(1)
			xs := irtest.Gate(p, "x", 0)
			hs := irtest.Gate(p, "h", 0)
			g := Build(p, irtest.Block(xs, hs), Options{})
			if err := g.CheckConsistency(); err != nil {
				t.Fatalf("fresh graph: %v", err)
			}
			x, _ := g.NodeOf(xs)
			h, _ := g.NodeOf(hs)
			tt.corrupt(g, x, h)

			err := g.CheckConsistency()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errs.IsInternal(err) {
				t.Errorf("expected internal error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
			if !strings.HasPrefix(err.Error(), "data dependency graph consistency check failed") {
				t.Errorf("error %q lacks context", err)
			}
		})
	}
}

func TestClear(t *testing.T) {
	p := irtest.NewPlatform(1)
	g := Build(p, irtest.Block(irtest.Gate(p, "x", 0)), Options{})
	g.Clear()
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic using a cleared graph")
		}
	}()
	g.Len()
}
