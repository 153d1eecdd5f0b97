package layoutgraph

import (
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
)

const DefaultLocateCacheSize = 256

type locateKey struct {
	parent LayoutID
	path   string
}

// Resolver answers the layout questions asked during descriptor preparation.
// Name lookups are cached; the cache is dropped whenever the graph is
// replaced.
type Resolver struct {
	graph *Graph
	cache *lru.Cache[locateKey, LayoutID]
}

func NewResolver(g *Graph, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultLocateCacheSize
	}
	cache, err := lru.New[locateKey, LayoutID](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating layout cache")
	}
	return &Resolver{graph: g, cache: cache}, nil
}

func (r *Resolver) Graph() *Graph {
	return r.graph
}

// Reset swaps the underlying graph.
func (r *Resolver) Reset(g *Graph) {
	r.graph = g
	r.cache.Purge()
}

func (r *Resolver) Locate(parent LayoutID, path string) LayoutID {
	key := locateKey{parent: parent, path: path}
	if id, ok := r.cache.Get(key); ok {
		return id
	}
	id := r.graph.Locate(parent, path)
	if id != NullLayout {
		r.cache.Add(key, id)
	}
	return id
}

// LayoutByName returns the root-relative layout at path.
func (r *Resolver) LayoutByName(path string) (LayoutID, *Layout, error) {
	id := r.Locate(NullLayout, path)
	if id == NullLayout {
		return NullLayout, nil, errors.Wrapf(core.ErrLayoutNotFound, "%q", path)
	}
	return id, r.graph.Layout(id), nil
}

// DescriptorSetLayout returns the descriptor set of layout id updated at freq,
// if the layout declares one.
func (r *Resolver) DescriptorSetLayout(id LayoutID, freq UpdateFrequency) (*DescriptorSetLayoutData, bool) {
	data, ok := r.graph.Layout(id).DescriptorSets[freq]
	return data, ok
}

// ConstantID returns the id of a uniform member. Every member of a described
// uniform block has one, so a miss is a malformed graph.
func (r *Resolver) ConstantID(name string) NameID {
	id, ok := r.graph.ConstantID(name)
	core.Expects(ok, "constant %q is not registered in the layout graph", name)
	return id
}

func (r *Resolver) AttributeID(name string) (NameID, bool) {
	return r.graph.AttributeID(name)
}
