package pipeline

import (
	"github.com/spaghettifunk/anima-pipeline/engine/containers"
	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/rendergraph"
)

type visitEntry struct {
	id   rendergraph.NodeID
	next int
}

// visit walks the subtree of root depth first. Every node is discovered
// before its children and finished after them.
func (t *traversal) visit(root rendergraph.NodeID) {
	var stack containers.Stack[visitEntry]
	visited := make(map[rendergraph.NodeID]struct{})

	visited[root] = struct{}{}
	t.discover(root)
	stack.Push(visitEntry{id: root})

	for !stack.Empty() {
		top := stack.Top()
		children := t.rg.Children(top.id)
		if top.next < len(children) {
			child := children[top.next]
			top.next++
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			t.discover(child)
			stack.Push(visitEntry{id: child})
			continue
		}
		t.finish(stack.Pop().id)
	}
}

func (t *traversal) discover(id rendergraph.NodeID) {
	t.stats.NodesVisited++
	switch n := t.rg.Node(id).(type) {
	case *rendergraph.RasterPass:
		t.enterPass(id, n.ComputeViews)
	case *rendergraph.ComputePass:
		t.enterPass(id, n.ComputeViews)
	case *rendergraph.RaytracePass:
		t.enterPass(id, n.ComputeViews)
	case *rendergraph.RasterSubpass:
		t.enterSubpass(id, n.ComputeViews, n.RasterViews)
	case *rendergraph.ComputeSubpass:
		t.enterSubpass(id, n.ComputeViews, nil)
	case *rendergraph.RenderQueue:
		t.enterQueue(id, n)
	case *rendergraph.SceneData, *rendergraph.Blit, *rendergraph.Dispatch:
		t.enterScene(id)
	case *rendergraph.ResolvePass, *rendergraph.CopyPass, *rendergraph.MovePass,
		*rendergraph.ClearViews, *rendergraph.Viewport:
		// bind nothing
	default:
		core.Expects(false, "node %s has unknown type %T", t.rg.Name(id), n)
	}
}

func (t *traversal) finish(id rendergraph.NodeID) {
	switch n := t.rg.Node(id).(type) {
	case *rendergraph.RasterPass, *rendergraph.ComputePass, *rendergraph.RaytracePass:
		t.exitPass(id)
	case *rendergraph.RasterSubpass, *rendergraph.ComputeSubpass:
		t.exitSubpass(id)
	case *rendergraph.RenderQueue:
		t.exitQueue(id)
	case *rendergraph.SceneData, *rendergraph.Blit, *rendergraph.Dispatch:
		t.exitScene(id)
	case *rendergraph.ResolvePass, *rendergraph.CopyPass, *rendergraph.MovePass,
		*rendergraph.ClearViews, *rendergraph.Viewport:
	default:
		core.Expects(false, "node %s has unknown type %T", t.rg.Name(id), n)
	}
}
