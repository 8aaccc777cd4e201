package server

import (
	"encoding/json"

	"github.com/numscull/go-numscull/lib/client"
)

func (s *Store) handleFlow(proj *project, identity string, id int64, method string, params json.RawMessage, now string) (envelope, bool) {
	switch method {
	case "flow/create":
		var p struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			CreatedDate string `json:"createdDate"`
		}
		decodeParams(params, &p)
		if p.CreatedDate == "" {
			p.CreatedDate = now
		}
		fid := proj.nextFlowID
		proj.nextFlowID++
		info := client.FlowInfo{
			InfoID:       fid,
			Name:         p.Name,
			Description:  p.Description,
			Author:       identity,
			ModifiedBy:   identity,
			CreatedDate:  p.CreatedDate,
			ModifiedDate: now,
		}
		proj.flowInfos[fid] = info
		proj.flows[fid] = &client.Flow{Info: info, Nodes: make(map[string]client.FlowNode)}
		proj.nextNodeID[fid] = 1
		return respond(id, method, map[string]interface{}{"flow": proj.flows[fid]}), true

	case "flow/get/all":
		infos := make([]client.FlowInfo, 0, len(proj.flowInfos))
		for fid := 1; fid < proj.nextFlowID; fid++ {
			if info, ok := proj.flowInfos[fid]; ok {
				infos = append(infos, info)
			}
		}
		return respond(id, method, map[string]interface{}{"flowInfos": infos}), true

	case "flow/get":
		var p struct {
			FlowID int `json:"flowId"`
		}
		decodeParams(params, &p)
		flow, ok := proj.flows[p.FlowID]
		if !ok {
			return respondError(id, "flow not found"), true
		}
		return respond(id, method, map[string]interface{}{"flow": flow}), true

	case "flow/add/node":
		var p flowNodeParams
		decodeParams(params, &p)
		fid := 0
		if p.FlowID != nil {
			fid = *p.FlowID
		} else {
			for cand := 1; cand < proj.nextFlowID; cand++ {
				if _, ok := proj.flows[cand]; ok {
					fid = cand
					break
				}
			}
		}
		flow, ok := proj.flows[fid]
		if !ok {
			return respondError(id, "no flow"), true
		}
		nid := proj.nextNodeID[fid]
		proj.nextNodeID[fid]++
		node := p.node()
		if p.ParentID != nil {
			node.InEdges = []int{*p.ParentID}
			if parent, ok := flow.Nodes[nodeIDKey(*p.ParentID)]; ok {
				parent.OutEdges = append(parent.OutEdges, nid)
				flow.Nodes[nodeIDKey(*p.ParentID)] = parent
			}
		}
		if p.ChildID != nil {
			node.OutEdges = []int{*p.ChildID}
		}
		flow.Nodes[nodeIDKey(nid)] = node
		return respond(id, method, map[string]interface{}{"flowId": fid, "nodeId": nid}), true

	case "flow/fork/node":
		var p flowNodeParams
		decodeParams(params, &p)
		if p.ParentID == nil {
			return respondError(id, "parent not found"), true
		}
		fid, flow := proj.flowHoldingNode(*p.ParentID)
		if flow == nil {
			return respondError(id, "parent not found"), true
		}
		nid := proj.nextNodeID[fid]
		proj.nextNodeID[fid]++
		node := p.node()
		node.InEdges = []int{*p.ParentID}
		parent := flow.Nodes[nodeIDKey(*p.ParentID)]
		parent.OutEdges = append(parent.OutEdges, nid)
		flow.Nodes[nodeIDKey(*p.ParentID)] = parent
		flow.Nodes[nodeIDKey(nid)] = node
		return respond(id, method, map[string]interface{}{"flowId": fid, "nodeId": nid}), true

	case "flow/set/node":
		var p struct {
			NodeID int             `json:"nodeId"`
			Node   client.FlowNode `json:"node"`
		}
		decodeParams(params, &p)
		fid, flow := proj.flowHoldingNode(p.NodeID)
		if flow == nil {
			return respondError(id, "node not found"), true
		}
		flow.Nodes[nodeIDKey(p.NodeID)] = p.Node
		return respond(id, method, map[string]interface{}{"flowId": fid, "nodeId": p.NodeID}), true

	case "flow/remove/node":
		var p struct {
			NodeID int `json:"nodeId"`
		}
		decodeParams(params, &p)
		fid, flow := proj.flowHoldingNode(p.NodeID)
		if flow == nil {
			return respondError(id, "node not found"), true
		}
		delete(flow.Nodes, nodeIDKey(p.NodeID))
		return respond(id, method, map[string]interface{}{"flowId": fid, "nodeId": p.NodeID}), true

	case "flow/remove":
		var p struct {
			FlowID int `json:"flowId"`
		}
		decodeParams(params, &p)
		delete(proj.flows, p.FlowID)
		delete(proj.flowInfos, p.FlowID)
		return respond(id, method, map[string]interface{}{
			"flowId":      p.FlowID,
			"linkedFlows": []int{},
		}), true

	case "flow/set/info":
		var p struct {
			FlowID       int    `json:"flowId"`
			Name         string `json:"name"`
			Description  string `json:"description"`
			ModifiedDate string `json:"modifiedDate"`
		}
		decodeParams(params, &p)
		if info, ok := proj.flowInfos[p.FlowID]; ok {
			info.Name = p.Name
			info.Description = p.Description
			info.ModifiedBy = identity
			if p.ModifiedDate != "" {
				info.ModifiedDate = p.ModifiedDate
			} else {
				info.ModifiedDate = now
			}
			proj.flowInfos[p.FlowID] = info
			if flow, ok := proj.flows[p.FlowID]; ok {
				flow.Info = info
			}
		}
		return respond(id, method, map[string]interface{}{"info": proj.flowInfos[p.FlowID]}), true

	case "flow/linked/to":
		return respond(id, method, map[string]interface{}{"flowIds": []int{}}), true

	case "flow/unlock":
		var p struct {
			FlowID int `json:"flowId"`
		}
		decodeParams(params, &p)
		return respond(id, method, map[string]interface{}{"flowId": p.FlowID}), true
	}
	return envelope{}, false
}

type flowNodeParams struct {
	Location client.Location `json:"location"`
	Note     string          `json:"note"`
	Color    string          `json:"color"`
	FlowID   *int            `json:"flowId"`
	ParentID *int            `json:"parentId"`
	ChildID  *int            `json:"childId"`
	Name     string          `json:"name"`
}

func (p flowNodeParams) node() client.FlowNode {
	color := p.Color
	if color == "" {
		color = "#888"
	}
	return client.FlowNode{
		Location: p.Location,
		Note:     p.Note,
		Color:    color,
		OutEdges: []int{},
		InEdges:  []int{},
		Name:     p.Name,
	}
}

func (p *project) flowHoldingNode(nodeID int) (int, *client.Flow) {
	for fid := 1; fid < p.nextFlowID; fid++ {
		flow, ok := p.flows[fid]
		if !ok {
			continue
		}
		if _, ok := flow.Nodes[nodeIDKey(nodeID)]; ok {
			return fid, flow
		}
	}
	return 0, nil
}
