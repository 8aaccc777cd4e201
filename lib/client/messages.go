package client

import "encoding/json"

// Message is one outbound RPC request. IDs are assigned by the client,
// start at 1, and increase by one per request on a connection.
type Message struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// Response is one decoded server envelope. Successful responses carry
// result; the init response carries params instead.
type Response struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// errorMethod marks the server's error envelope; its result holds a
// human-readable reason.
const errorMethod = "control/error"

type errorResult struct {
	Reason string `json:"reason"`
}

// RemoteError is a semantic failure reported by the server, e.g. "no
// active project". The reason string is meant for humans and is
// surfaced verbatim.
type RemoteError struct {
	Reason string
}

func (e *RemoteError) Error() string {
	return e.Reason
}

// PublicKey is the wire encoding of a 32-byte key in JSON messages.
type PublicKey struct {
	Bytes string `json:"bytes"`
}

type initParams struct {
	Identity string `json:"identity"`
	Version  string `json:"version"`
}

type initResponseParams struct {
	Valid     bool      `json:"valid"`
	PublicKey PublicKey `json:"publicKey"`
}

// FileID identifies a file by URI.
type FileID struct {
	URI string `json:"uri"`
}

// Location pins a note or flow node to a line in a file.
type Location struct {
	FileID FileID `json:"fileId"`
	Line   int    `json:"line"`
}

// Note is one annotation. Author and ModifiedBy are filled in by the
// server from the authenticated identity.
type Note struct {
	Location     Location `json:"location"`
	Text         string   `json:"text"`
	Author       string   `json:"author,omitempty"`
	ModifiedBy   string   `json:"modifiedBy,omitempty"`
	CreatedDate  string   `json:"createdDate,omitempty"`
	ModifiedDate string   `json:"modifiedDate,omitempty"`
	Orphaned     *string  `json:"orphaned,omitempty"`
}

// Page selects one page of a paginated result.
type Page struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// TagCount is one hashtag with its occurrence count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Project is one server-side project.
type Project struct {
	Name          string `json:"name"`
	Repository    string `json:"repository"`
	OwnerIdentity string `json:"ownerIdentity"`
}

// FlowInfo is the metadata of one flow.
type FlowInfo struct {
	InfoID       int    `json:"infoId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Author       string `json:"author,omitempty"`
	ModifiedBy   string `json:"modifiedBy,omitempty"`
	CreatedDate  string `json:"createdDate,omitempty"`
	ModifiedDate string `json:"modifiedDate,omitempty"`
}

// FlowNode is one node in a flow graph. Edge lists hold node IDs.
type FlowNode struct {
	Location Location `json:"location"`
	Note     string   `json:"note"`
	Color    string   `json:"color"`
	OutEdges []int    `json:"outEdges"`
	InEdges  []int    `json:"inEdges"`
	Name     string   `json:"name,omitempty"`
}

// Flow is one full flow graph. Node keys are decimal node IDs; JSON
// objects cannot carry integer keys.
type Flow struct {
	Info  FlowInfo            `json:"info"`
	Nodes map[string]FlowNode `json:"nodes"`
}
