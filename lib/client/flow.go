package client

// Flow-module methods: the navigable graph of annotated locations.

type flowResult struct {
	Flow Flow `json:"flow"`
}

type flowInfosResult struct {
	FlowInfos []FlowInfo `json:"flowInfos"`
}

type flowNodeResult struct {
	FlowID int `json:"flowId"`
	NodeID int `json:"nodeId"`
}

// FlowNodeOptions are the optional parameters of FlowAddNode and
// FlowForkNode. Nil fields are omitted from the request.
type FlowNodeOptions struct {
	FlowID   *int
	ParentID *int
	ChildID  *int
	Name     *string
	Link     *int
	Orphaned *string
}

// FlowGetAll lists the flow metadata of the active project.
func (c *Client) FlowGetAll() ([]FlowInfo, error) {
	var res flowInfosResult
	if err := c.requestInto("flow/get/all", nil, &res); err != nil {
		return nil, err
	}
	return res.FlowInfos, nil
}

// FlowCreate makes a new empty flow and returns it.
func (c *Client) FlowCreate(name, description, createdDate string) (*Flow, error) {
	params := map[string]interface{}{
		"name":        name,
		"description": description,
		"createdDate": createdDate,
	}
	var res flowResult
	if err := c.requestInto("flow/create", params, &res); err != nil {
		return nil, err
	}
	return &res.Flow, nil
}

// FlowRemove deletes a flow.
func (c *Client) FlowRemove(flowID int) error {
	return c.requestInto("flow/remove", map[string]interface{}{"flowId": flowID}, nil)
}

// FlowGet fetches one full flow graph.
func (c *Client) FlowGet(flowID int) (*Flow, error) {
	var res flowResult
	if err := c.requestInto("flow/get", map[string]interface{}{"flowId": flowID}, &res); err != nil {
		return nil, err
	}
	return &res.Flow, nil
}

// FlowSet replaces a whole flow.
func (c *Client) FlowSet(flow *Flow) error {
	return c.requestInto("flow/set", map[string]interface{}{"flow": flow}, nil)
}

type flowInfoResult struct {
	Info FlowInfo `json:"info"`
}

// FlowSetInfo updates a flow's metadata.
func (c *Client) FlowSetInfo(flowID int, name, description, modifiedDate string) (*FlowInfo, error) {
	params := map[string]interface{}{
		"flowId":       flowID,
		"name":         name,
		"description":  description,
		"modifiedDate": modifiedDate,
	}
	var res flowInfoResult
	if err := c.requestInto("flow/set/info", params, &res); err != nil {
		return nil, err
	}
	return &res.Info, nil
}

type flowIDsResult struct {
	FlowIDs []int `json:"flowIds"`
}

// FlowLinkedTo lists the flows linked to the given flow.
func (c *Client) FlowLinkedTo(flowID int) ([]int, error) {
	var res flowIDsResult
	if err := c.requestInto("flow/linked/to", map[string]interface{}{"flowId": flowID}, &res); err != nil {
		return nil, err
	}
	return res.FlowIDs, nil
}

// FlowUnlock releases a flow's edit lock.
func (c *Client) FlowUnlock(flowID int) error {
	return c.requestInto("flow/unlock", map[string]interface{}{"flowId": flowID}, nil)
}

func applyNodeOptions(params map[string]interface{}, opts *FlowNodeOptions) {
	if opts == nil {
		return
	}
	if opts.FlowID != nil {
		params["flowId"] = *opts.FlowID
	}
	if opts.ParentID != nil {
		params["parentId"] = *opts.ParentID
	}
	if opts.ChildID != nil {
		params["childId"] = *opts.ChildID
	}
	if opts.Name != nil {
		params["name"] = *opts.Name
	}
	if opts.Link != nil {
		params["link"] = *opts.Link
	}
	if opts.Orphaned != nil {
		params["orphaned"] = *opts.Orphaned
	}
}

// FlowAddNode appends a node to a flow, linking it to optional parent
// and child nodes. Returns the flow and node IDs the server assigned.
func (c *Client) FlowAddNode(location Location, note, color string, opts *FlowNodeOptions) (flowID, nodeID int, err error) {
	params := map[string]interface{}{
		"location": location,
		"note":     note,
		"color":    color,
	}
	applyNodeOptions(params, opts)
	var res flowNodeResult
	if err := c.requestInto("flow/add/node", params, &res); err != nil {
		return 0, 0, err
	}
	return res.FlowID, res.NodeID, nil
}

// FlowForkNode creates a new branch off an existing node.
func (c *Client) FlowForkNode(location Location, note, color string, parentID int, opts *FlowNodeOptions) (flowID, nodeID int, err error) {
	params := map[string]interface{}{
		"location": location,
		"note":     note,
		"color":    color,
		"parentId": parentID,
	}
	applyNodeOptions(params, opts)
	var res flowNodeResult
	if err := c.requestInto("flow/fork/node", params, &res); err != nil {
		return 0, 0, err
	}
	return res.FlowID, res.NodeID, nil
}

// FlowSetNode replaces the fields of one node.
func (c *Client) FlowSetNode(nodeID int, node FlowNode) (flowID int, err error) {
	params := map[string]interface{}{"nodeId": nodeID, "node": node}
	var res flowNodeResult
	if err := c.requestInto("flow/set/node", params, &res); err != nil {
		return 0, err
	}
	return res.FlowID, nil
}

// FlowRemoveNode deletes one node from whichever flow holds it.
func (c *Client) FlowRemoveNode(nodeID int) error {
	return c.requestInto("flow/remove/node", map[string]interface{}{"nodeId": nodeID}, nil)
}
