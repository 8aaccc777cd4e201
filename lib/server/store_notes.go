package server

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/numscull/go-numscull/lib/client"
)

func (s *Store) handleNotes(proj *project, identity string, id int64, method string, params json.RawMessage, now string) (envelope, bool) {
	switch method {
	case "notes/set":
		var p struct {
			Note client.Note `json:"note"`
		}
		decodeParams(params, &p)
		note := p.Note
		note.Author = identity
		note.ModifiedBy = identity
		if note.CreatedDate == "" {
			note.CreatedDate = now
		}
		if note.ModifiedDate == "" {
			note.ModifiedDate = now
		}
		proj.notes[proj.noteFor(note.Location)] = note
		return respond(id, method, map[string]interface{}{
			"note":     note,
			"tagCount": proj.tagCounts(),
		}), true

	case "notes/for/file":
		var p struct {
			FileID client.FileID `json:"fileId"`
			Page   *client.Page  `json:"page"`
		}
		decodeParams(params, &p)
		var notes []client.Note
		for key, n := range proj.notes {
			if key.uri == p.FileID.URI {
				notes = append(notes, n)
			}
		}
		sort.Slice(notes, func(i, j int) bool {
			return notes[i].Location.Line < notes[j].Location.Line
		})
		paged, maxPage := paginate(notes, p.Page)
		return respond(id, method, map[string]interface{}{
			"fileId":  p.FileID,
			"notes":   paged,
			"maxPage": maxPage,
		}), true

	case "notes/remove":
		var p struct {
			Location client.Location `json:"location"`
		}
		decodeParams(params, &p)
		delete(proj.notes, proj.noteFor(p.Location))
		return respond(id, method, map[string]interface{}{
			"location": p.Location,
			"tagCount": proj.tagCounts(),
		}), true

	case "notes/search":
		var p struct {
			Text string       `json:"text"`
			Page *client.Page `json:"page"`
		}
		decodeParams(params, &p)
		match := strings.ToLower(p.Text)
		notes := proj.collectNotes(func(n client.Note) bool {
			return strings.Contains(strings.ToLower(n.Text), match)
		})
		paged, maxPage := paginate(notes, p.Page)
		return respond(id, method, map[string]interface{}{"notes": paged, "maxPage": maxPage}), true

	case "notes/search/tags":
		var p struct {
			Text string       `json:"text"`
			Page *client.Page `json:"page"`
		}
		decodeParams(params, &p)
		match := strings.ToLower(p.Text)
		notes := proj.collectNotes(func(n client.Note) bool {
			for _, m := range hashtagPattern.FindAllStringSubmatch(n.Text, -1) {
				if strings.ToLower(m[1]) == match {
					return true
				}
			}
			return false
		})
		paged, maxPage := paginate(notes, p.Page)
		return respond(id, method, map[string]interface{}{"notes": paged, "maxPage": maxPage}), true

	case "notes/search/columns":
		var p struct {
			Filter client.NotesFilter `json:"filter"`
			Page   *client.Page       `json:"page"`
		}
		decodeParams(params, &p)
		notes := proj.collectNotes(func(n client.Note) bool {
			if p.Filter.Author != "" && n.Author != p.Filter.Author {
				return false
			}
			if p.Filter.Text != "" && !strings.Contains(strings.ToLower(n.Text), strings.ToLower(p.Filter.Text)) {
				return false
			}
			return true
		})
		paged, maxPage := paginate(notes, p.Page)
		return respond(id, method, map[string]interface{}{"notes": paged, "maxPage": maxPage}), true

	case "notes/tag/count":
		return respond(id, method, map[string]interface{}{"tags": proj.tagCounts()}), true
	}
	return envelope{}, false
}

// collectNotes returns the matching notes in stable location order.
func (p *project) collectNotes(keep func(client.Note) bool) []client.Note {
	var notes []client.Note
	for _, n := range p.notes {
		if keep(n) {
			notes = append(notes, n)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Location.FileID.URI != notes[j].Location.FileID.URI {
			return notes[i].Location.FileID.URI < notes[j].Location.FileID.URI
		}
		return notes[i].Location.Line < notes[j].Location.Line
	})
	return notes
}
