package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIDStartsAtOne(t *testing.T) {
	assert := assert.New(t)

	c := &Client{}
	assert.Equal(int64(1), c.nextID())
	assert.Equal(int64(2), c.nextID())
	assert.Equal(int64(3), c.nextID())
}

func TestRemoteErrorMessage(t *testing.T) {
	assert := assert.New(t)

	err := &RemoteError{Reason: "no active project"}
	assert.Equal("no active project", err.Error())
}

func TestFlowNodesDecodeDecimalKeys(t *testing.T) {
	assert := assert.New(t)

	raw := []byte(`{"info":{"infoId":1,"name":"trace"},"nodes":{"7":{"location":{"fileId":{"uri":"file:///a"},"line":1},"note":"n","color":"#888","outEdges":[],"inEdges":[]}}}`)
	var flow Flow
	assert.NoError(json.Unmarshal(raw, &flow))
	assert.Contains(flow.Nodes, "7")
	assert.Equal("n", flow.Nodes["7"].Note)
}
