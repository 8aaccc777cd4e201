package client

import "encoding/base64"

// Control-module methods: project and subscription management.

type listProjectsResult struct {
	Projects []Project `json:"projects"`
}

// ListProjects returns every project on the server.
func (c *Client) ListProjects() ([]Project, error) {
	var res listProjectsResult
	if err := c.requestInto("control/list/project", nil, &res); err != nil {
		return nil, err
	}
	return res.Projects, nil
}

// CreateProject registers a new project.
func (c *Client) CreateProject(name, repository, ownerIdentity string) error {
	params := map[string]interface{}{
		"name":          name,
		"repository":    repository,
		"ownerIdentity": ownerIdentity,
	}
	return c.requestInto("control/create/project", params, nil)
}

// ChangeProject switches the session's active project.
func (c *Client) ChangeProject(name string) error {
	return c.requestInto("control/change/project", map[string]interface{}{"name": name}, nil)
}

// RemoveProject deletes a project.
func (c *Client) RemoveProject(name string) error {
	return c.requestInto("control/remove/project", map[string]interface{}{"name": name}, nil)
}

type channelsResult struct {
	Channels []int `json:"channels"`
}

// Subscribe subscribes this session to server notification channels.
func (c *Client) Subscribe(channels []int) ([]int, error) {
	var res channelsResult
	if err := c.requestInto("control/subscribe", map[string]interface{}{"channels": channels}, &res); err != nil {
		return nil, err
	}
	return res.Channels, nil
}

// Unsubscribe removes notification channel subscriptions.
func (c *Client) Unsubscribe(channels []int) ([]int, error) {
	var res channelsResult
	if err := c.requestInto("control/unsubscribe", map[string]interface{}{"channels": channels}, &res); err != nil {
		return nil, err
	}
	return res.Channels, nil
}

// AddUserServer registers another identity's public key with the server.
func (c *Client) AddUserServer(identity string, publicKey [32]byte) error {
	params := map[string]interface{}{
		"identity":  identity,
		"publicKey": PublicKey{Bytes: base64.StdEncoding.EncodeToString(publicKey[:])},
	}
	return c.requestInto("control/add/user/server", params, nil)
}

// AddUserProject grants an identity access to a project. Permissions
// may be nil for the server default.
func (c *Client) AddUserProject(project, identity string, permissions map[string]interface{}) error {
	params := map[string]interface{}{
		"project":  project,
		"identity": identity,
	}
	if permissions != nil {
		params["permissions"] = permissions
	}
	return c.requestInto("control/add/user/project", params, nil)
}

// Exit asks the server to end the session cleanly.
func (c *Client) Exit() error {
	return c.requestInto("control/exit", nil, nil)
}
