package neo4jstore

import (
	"fmt"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/valueobjects"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// convertValue turns driver graph and temporal types into plain values that encode
// cleanly as JSON. Partition labels are removed from nodes.
func convertValue(v interface{}) interface{} {
	switch val := v.(type) {
	case dbtype.Node:
		return toNode(val)
	case dbtype.Relationship:
		return toRelationship(val)
	case dbtype.Path:
		return toPath(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = convertValue(item)
		}
		return out
	case dbtype.Date:
		return time.Time(val).Format("2006-01-02")
	case dbtype.LocalDateTime:
		return time.Time(val).Format("2006-01-02T15:04:05.999999999")
	case dbtype.LocalTime:
		return time.Time(val).Format("15:04:05.999999999")
	case dbtype.Time:
		return time.Time(val).Format("15:04:05.999999999Z07:00")
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}

func toNode(n dbtype.Node) ports.Node {
	labels := make([]string, 0, len(n.Labels))
	for _, l := range n.Labels {
		if valueobjects.IsReservedLabel(l) {
			continue
		}
		labels = append(labels, l)
	}
	return ports.Node{ID: n.Id, Labels: labels, Properties: convertProps(n.Props)}
}

func toRelationship(r dbtype.Relationship) ports.Relationship {
	return ports.Relationship{
		ID:         r.Id,
		Type:       r.Type,
		StartID:    r.StartId,
		EndID:      r.EndId,
		Properties: convertProps(r.Props),
	}
}

func toPath(p dbtype.Path) ports.Path {
	path := ports.Path{
		Length:        len(p.Relationships),
		Nodes:         make([]ports.Node, 0, len(p.Nodes)),
		Relationships: make([]ports.Relationship, 0, len(p.Relationships)),
	}
	for _, n := range p.Nodes {
		path.Nodes = append(path.Nodes, toNode(n))
	}
	for _, r := range p.Relationships {
		path.Relationships = append(path.Relationships, toRelationship(r))
	}
	return path
}

func convertProps(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = convertValue(v)
	}
	return out
}
