package drawer

import (
	"fmt"
	"html"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-taskflow/pkg/pipeline/measure"
	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

var shapes = map[model.NodeType]string{
	model.TaskNodeType:       "box",
	model.SequentialNodeType: "cds",
	model.ParallelNodeType:   "diamond",
	model.PublishNodeType:    "invhouse",
	model.SubscribeNodeType:  "house",
	model.BoundaryNodeType:   "circle",
}

// DOTDrawer is a drawer that creates a DOT file with the pipeline graph.
// It is safe for concurrent use, runs of one pipeline may finish at the same time.
type DOTDrawer struct {
	mu          sync.Mutex
	graph       graph.Graph[string, string]
	dotFileName string
}

// NewDOTDrawer creates a new DOT drawer.
func NewDOTDrawer(dotFileName string) *DOTDrawer {
	return &DOTDrawer{
		dotFileName: dotFileName,
		graph:       graph.New(graph.StringHash, graph.Directed()),
	}
}

// AddNode adds a node to the pipeline graph.
func (d *DOTDrawer) AddNode(node *model.NodeInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	shape, ok := shapes[node.Type]
	if !ok {
		shape = "box"
	}
	err := d.graph.AddVertex(node.ID,
		graph.VertexAttribute("label", escape(node.Name)),
		graph.VertexAttribute("shape", shape),
	)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrap(err, "unable to add vertex")
	}

	return nil
}

// AddLink adds a link between parent and child nodes.
func (d *DOTDrawer) AddLink(parentID, childID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.graph.AddEdge(parentID, childID)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentID, childID)
	}

	return nil
}

// AddSlotLink adds a dashed link between a publisher and a subscriber.
func (d *DOTDrawer) AddSlotLink(publisherID, subscriberID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.graph.AddEdge(publisherID, subscriberID, graph.EdgeAttribute("style", "dashed"))
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add slot edge from %s to %s", publisherID, subscriberID)
	}

	return nil
}

// WriteTo writes the pipeline graph in the DOT language.
func (d *DOTDrawer) WriteTo(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return dot(d.graph, w)
}

// Draw creates a DOT file with the pipeline graph.
func (d *DOTDrawer) Draw() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	file, err := os.Create(d.dotFileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.dotFileName)
	}

	err = dot(d.graph, file)
	if err != nil {
		file.Close()

		return errors.Wrapf(err, "unable to create dot file %s", d.dotFileName)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "unable to close dot file %s", d.dotFileName)
	}

	return nil
}

const maxRGB = 240

// AddMeasure adds measure to drawer.
// Vertices are labelled with their average duration and slot edges are coloured from blue to red
// by the time subscribers waited for them.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	allChanElapsed := make(map[time.Duration]string)
	sortedAllChanElapsed := []time.Duration{}

	for _, metric := range msr.AllMetrics() {
		for _, info := range metric.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}
			if _, ok := allChanElapsed[info.Elapsed]; ok {
				continue
			}
			allChanElapsed[info.Elapsed] = ""
			sortedAllChanElapsed = append(sortedAllChanElapsed, info.Elapsed)
		}
	}

	if len(sortedAllChanElapsed) > 0 {
		sort.Slice(sortedAllChanElapsed, func(i, j int) bool {
			return sortedAllChanElapsed[i] > sortedAllChanElapsed[j]
		})

		maxValue := sortedAllChanElapsed[0]
		minValue := sortedAllChanElapsed[len(sortedAllChanElapsed)-1]

		for curr := range allChanElapsed {
			fraction := 1.0
			if maxValue > minValue {
				fraction = float64(curr-minValue) / float64(maxValue-minValue)
			}

			red := maxRGB * fraction
			blue := maxRGB - red

			colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
			if err != nil {
				return errors.Wrap(err, "unable to get colour")
			}

			allChanElapsed[curr] = colour.ToHEX().String()
		}
	}

	err := d.updateMetrics(msr, allChanElapsed)
	if err != nil {
		return errors.Wrap(err, "unable to update metrics")
	}

	return nil
}

func (d *DOTDrawer) updateMetrics(msr measure.Measure, allChanElapsed map[time.Duration]string) error {
	for id, metric := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(id)
		if errors.Is(err, graph.ErrVertexNotFound) {
			continue
		}
		if err != nil {
			return errors.Wrap(err, "unable to get vertex properties")
		}

		// The label is rebuilt from the whole measure on every call.
		xlabel := make([]string, 0, 2)
		if avg := metric.AVGDuration(); avg != 0 {
			xlabel = append(xlabel, avg.String())
		}
		if failures := metric.Failures(); failures > 0 {
			xlabel = append(xlabel, "failures: "+strconv.FormatInt(failures, 10))
			properties.Attributes["color"] = "red"
		}
		if len(xlabel) > 0 {
			properties.Attributes["xlabel"] = strings.Join(xlabel, " ")
		} else {
			delete(properties.Attributes, "xlabel")
		}

		for inputID, info := range metric.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			err := d.graph.UpdateEdge(inputID, id,
				graph.EdgeAttribute("label", info.Elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", allChanElapsed[info.Elapsed]),
			)
			if err != nil {
				return errors.Wrap(err, "unable to update edge")
			}
		}
	}

	return nil
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot(g graph.Graph[string, string], wrt io.Writer) error {
	desc, err := generateDOT(g)
	if err != nil {
		return errors.Wrap(err, "unable to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

// generateDOT builds the statements in a stable order: vertices and their targets are sorted by ID.
func generateDOT(gra graph.Graph[string, string]) (description, error) {
	desc := description{
		GraphType:    "graph",
		Attributes:   map[string]string{"rankdir": "LR"},
		EdgeOperator: "--",
		Statements:   make([]statement, 0),
	}

	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]string, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}
	sort.Strings(vertices)

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)
		sourceAttributes := make(map[string]string, len(sourceProperties.Attributes))
		for k, v := range sourceProperties.Attributes {
			sourceAttributes[k] = v
		}

		if xlabel, ok := sourceAttributes["xlabel"]; ok {
			label := strings.ReplaceAll(sourceAttributes["label"], `\"`, `"`)
			htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`,
				html.EscapeString(label), html.EscapeString(xlabel))

			delete(sourceAttributes, "xlabel")
			delete(sourceAttributes, "label")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		})

		adjacencies := adjacencyMap[vertex]
		targets := make([]string, 0, len(adjacencies))
		for target := range adjacencies {
			targets = append(targets, target)
		}
		sort.Strings(targets)

		for _, target := range targets {
			edge := adjacencies[target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "unable to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
