package server

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/numscull/go-numscull/lib/client"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

type noteKey struct {
	uri  string
	line int
}

type project struct {
	repository    string
	ownerIdentity string
	notes         map[noteKey]client.Note
	flows         map[int]*client.Flow
	flowInfos     map[int]client.FlowInfo
	nextFlowID    int
	nextNodeID    map[int]int
}

func newProject(repository, owner string) *project {
	return &project{
		repository:    repository,
		ownerIdentity: owner,
		notes:         make(map[noteKey]client.Note),
		flows:         make(map[int]*client.Flow),
		flowInfos:     make(map[int]client.FlowInfo),
		nextFlowID:    1,
		nextNodeID:    make(map[int]int),
	}
}

// Store is the in-memory state behind the dev server. One Store is
// shared by every connection, so all access is serialized.
type Store struct {
	mu            sync.Mutex
	projects      map[string]*project
	activeProject string
}

func NewStore() *Store {
	return &Store{projects: make(map[string]*project)}
}

// envelope is one response message; Result is always non-nil.
type envelope struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Result interface{} `json:"result"`
}

func respond(id int64, method string, result interface{}) envelope {
	return envelope{ID: id, Method: method, Result: result}
}

func respondError(id int64, reason string) envelope {
	return envelope{ID: id, Method: "control/error", Result: map[string]string{"reason": reason}}
}

// decodeParams fills out from params, deliberately tolerating absent or
// malformed input: every handler treats its parameters as optional and
// falls back to zero values.
func decodeParams(params json.RawMessage, out interface{}) {
	if len(params) == 0 {
		return
	}
	_ = json.Unmarshal(params, out)
}

// Handle dispatches one decoded request for the given authenticated
// identity and returns the response envelope.
func (s *Store) Handle(identity string, id int64, method string, params json.RawMessage) envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if resp, handled := s.handleControl(id, method, params); handled {
		return resp
	}

	proj, ok := s.projects[s.activeProject]
	if s.activeProject == "" || !ok {
		return respondError(id, "no active project")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	if resp, handled := s.handleNotes(proj, identity, id, method, params, now); handled {
		return resp
	}
	if resp, handled := s.handleFlow(proj, identity, id, method, params, now); handled {
		return resp
	}
	return respondError(id, fmt.Sprintf("unknown method: %s", method))
}

func (s *Store) handleControl(id int64, method string, params json.RawMessage) (envelope, bool) {
	switch method {
	case "control/list/project":
		projects := make([]client.Project, 0, len(s.projects))
		for name, p := range s.projects {
			projects = append(projects, client.Project{
				Name:          name,
				Repository:    p.repository,
				OwnerIdentity: p.ownerIdentity,
			})
		}
		sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
		return respond(id, method, map[string]interface{}{"projects": projects}), true

	case "control/create/project":
		var p struct {
			Name          string `json:"name"`
			Repository    string `json:"repository"`
			OwnerIdentity string `json:"ownerIdentity"`
		}
		decodeParams(params, &p)
		s.projects[p.Name] = newProject(p.Repository, p.OwnerIdentity)
		return respond(id, method, map[string]interface{}{}), true

	case "control/change/project":
		var p struct {
			Name string `json:"name"`
		}
		decodeParams(params, &p)
		s.activeProject = p.Name
		return respond(id, method, map[string]interface{}{"name": s.activeProject}), true

	case "control/remove/project":
		var p struct {
			Name string `json:"name"`
		}
		decodeParams(params, &p)
		delete(s.projects, p.Name)
		if s.activeProject == p.Name {
			s.activeProject = ""
		}
		return respond(id, method, map[string]interface{}{}), true

	case "control/subscribe", "control/unsubscribe":
		var p struct {
			Channels []int `json:"channels"`
		}
		decodeParams(params, &p)
		if p.Channels == nil {
			p.Channels = []int{}
		}
		return respond(id, method, map[string]interface{}{"channels": p.Channels}), true

	case "control/exit":
		return respond(id, method, map[string]interface{}{}), true
	}
	return envelope{}, false
}

func (p *project) tagCounts() []client.TagCount {
	counts := make(map[string]int)
	for _, n := range p.notes {
		for _, m := range hashtagPattern.FindAllStringSubmatch(n.Text, -1) {
			counts[m[1]]++
		}
	}
	tags := make([]client.TagCount, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, client.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Tag < tags[j].Tag })
	return tags
}

func paginate(notes []client.Note, page *client.Page) ([]client.Note, int) {
	idx, size := 0, 100
	if page != nil {
		idx = page.Index
		if page.Size > 0 {
			size = page.Size
		}
	}
	maxPage := 0
	if size > 0 && len(notes) > 0 {
		maxPage = (len(notes) - 1) / size
	}
	// idx and end are client-supplied; clamp both into [0, len(notes)]
	// so a hostile page never indexes out of range.
	if idx < 0 {
		idx = 0
	}
	if idx > len(notes) {
		idx = len(notes)
	}
	end := len(notes)
	if size < len(notes)-idx {
		end = idx + size
	}
	out := notes[idx:end]
	if out == nil {
		out = []client.Note{}
	}
	return out, maxPage
}

func (p *project) noteFor(loc client.Location) noteKey {
	return noteKey{uri: loc.FileID.URI, line: loc.Line}
}

func nodeIDKey(id int) string {
	return strconv.Itoa(id)
}
