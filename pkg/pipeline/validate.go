package pipeline

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

type relation struct {
	parent, node *model.NodeInfo
}

// graphIndex is the static description of a pipeline collected by a depth first traversal.
type graphIndex struct {
	infos      map[Node]*model.NodeInfo
	usedIDs    map[string]int
	relations  []relation
	publishers map[string][]*model.NodeInfo
	// subscribers keeps the declaration order of subscribe nodes for every name.
	subscribers map[string][]*model.NodeInfo
	slotOrder   []string
}

func newGraphIndex() *graphIndex {
	return &graphIndex{
		infos:       make(map[Node]*model.NodeInfo),
		usedIDs:     make(map[string]int),
		publishers:  make(map[string][]*model.NodeInfo),
		subscribers: make(map[string][]*model.NodeInfo),
	}
}

func (gi *graphIndex) info(node Node) (*model.NodeInfo, bool) {
	if info, ok := gi.infos[node]; ok {
		return info, false
	}
	isSlot := node.Type() == model.PublishNodeType || node.Type() == model.SubscribeNodeType
	id := node.Name()
	if isSlot {
		id = string(node.Type()) + ":" + id
	}
	gi.usedIDs[id]++
	if n := gi.usedIDs[id]; n > 1 {
		id += "#" + strconv.Itoa(n)
	}
	info := &model.NodeInfo{ID: id, Name: node.Name(), Type: node.Type()}
	if isSlot {
		info.Slot = node.Name()
	}
	gi.infos[node] = info

	return info, true
}

// walk visits node and, the first time it is seen, its children.
func (gi *graphIndex) walk(parent *model.NodeInfo, node Node) error {
	if node == nil {
		return ErrNilNode
	}
	info, first := gi.info(node)
	gi.relations = append(gi.relations, relation{parent: parent, node: info})
	if !first {
		return nil
	}

	switch node.Type() {
	case model.PublishNodeType:
		gi.addSlot(gi.publishers, info)
	case model.SubscribeNodeType:
		gi.addSlot(gi.subscribers, info)
	case model.SequentialNodeType, model.ParallelNodeType:
		for _, child := range node.Children() {
			err := gi.walk(info, child)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (gi *graphIndex) addSlot(slots map[string][]*model.NodeInfo, info *model.NodeInfo) {
	if _, known := gi.publishers[info.Slot]; !known {
		if _, known := gi.subscribers[info.Slot]; !known {
			gi.slotOrder = append(gi.slotOrder, info.Slot)
		}
	}
	slots[info.Slot] = append(slots[info.Slot], info)
}

// missing returns the subscribed names without publisher.
func (gi *graphIndex) missing() map[string]struct{} {
	missing := make(map[string]struct{})
	for name := range gi.subscribers {
		if _, ok := gi.publishers[name]; !ok {
			missing[name] = struct{}{}
		}
	}

	return missing
}

// indexRoots traverses every root and checks that each subscribed name is published somewhere.
func indexRoots(roots []Node) (*graphIndex, error) {
	if len(roots) == 0 {
		return nil, ErrNoRoot
	}
	gi := newGraphIndex()
	for i, root := range roots {
		err := gi.walk(model.StartNode, root)
		if err != nil {
			return nil, errors.Wrapf(err, "root %d", i)
		}
	}
	if missing := gi.missing(); len(missing) > 0 {
		return nil, newOutputMismatchError(missing)
	}

	return gi, nil
}

// prepareHooks replays the collected graph on every hook.
func (gi *graphIndex) prepareHooks(hooks []model.PipelineHook) error {
	for _, hook := range hooks {
		for _, rel := range gi.relations {
			err := hook.PrepareNode(rel.parent, rel.node)
			if err != nil {
				return errors.Wrapf(err, "unable to prepare node %s", rel.node.ID)
			}
		}
		for _, name := range gi.slotOrder {
			for _, pub := range gi.publishers[name] {
				for _, sub := range gi.subscribers[name] {
					err := hook.PrepareSlotLink(pub, sub)
					if err != nil {
						return errors.Wrapf(err, "unable to link %s to %s", pub.ID, sub.ID)
					}
				}
			}
		}
	}

	return nil
}
