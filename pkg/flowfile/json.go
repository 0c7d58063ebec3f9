package flowfile

import (
	"encoding/json"
	"time"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// jsonFlowchart is the JSON representation of a flowchart record. A bare
// diagram document ({"nodes": ..., "connections": ...}) decodes into the
// Nodes/Connections fields instead of Data.
type jsonFlowchart struct {
	ID          string            `json:"id,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Data        *flow.Diagram     `json:"data,omitempty"`
	Nodes       []flow.Node       `json:"nodes,omitempty"`
	Connections []flow.Connection `json:"connections,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

// ParseJSON parses a flowchart record, or a bare diagram document, from JSON.
// Missing arrays decode as empty slices.
func ParseJSON(data []byte) (*flow.Flowchart, error) {
	var j jsonFlowchart
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}

	f := &flow.Flowchart{
		ID:          j.ID,
		UserID:      j.UserID,
		Title:       j.Title,
		Description: j.Description,
	}
	if j.Data != nil {
		f.Data = *j.Data
	} else {
		f.Data = flow.Diagram{Nodes: j.Nodes, Connections: j.Connections}
	}
	if f.Data.Nodes == nil {
		f.Data.Nodes = []flow.Node{}
	}
	if f.Data.Connections == nil {
		f.Data.Connections = []flow.Connection{}
	}
	if j.CreatedAt != nil {
		f.CreatedAt = *j.CreatedAt
	}
	if j.UpdatedAt != nil {
		f.UpdatedAt = *j.UpdatedAt
	}
	return f, nil
}

// ToJSON converts a flowchart record to JSON.
func ToJSON(f *flow.Flowchart, pretty bool) ([]byte, error) {
	data := f.Data
	if data.Nodes == nil {
		data.Nodes = []flow.Node{}
	}
	if data.Connections == nil {
		data.Connections = []flow.Connection{}
	}
	j := jsonFlowchart{
		ID:          f.ID,
		UserID:      f.UserID,
		Title:       f.Title,
		Description: f.Description,
		Data:        &data,
	}
	if !f.CreatedAt.IsZero() {
		j.CreatedAt = &f.CreatedAt
	}
	if !f.UpdatedAt.IsZero() {
		j.UpdatedAt = &f.UpdatedAt
	}

	if pretty {
		return json.MarshalIndent(j, "", "  ")
	}
	return json.Marshal(j)
}
