package client

// Notes-module methods.

// NotesPage is one page of notes plus the index of the last page.
type NotesPage struct {
	FileID  *FileID  `json:"fileId,omitempty"`
	Notes   []Note   `json:"notes"`
	MaxPage int      `json:"maxPage"`
}

// NotesSetResult carries the stored note as the server recorded it and
// the project's updated tag counts.
type NotesSetResult struct {
	Note     Note       `json:"note"`
	TagCount []TagCount `json:"tagCount"`
}

// NotesRemoveResult echoes the removed location with updated tag counts.
type NotesRemoveResult struct {
	Location Location   `json:"location"`
	TagCount []TagCount `json:"tagCount"`
}

// NotesFilter restricts a column search.
type NotesFilter struct {
	Author string `json:"author,omitempty"`
	Text   string `json:"text,omitempty"`
}

// NotesForFile lists the notes attached to one file, ordered by line.
func (c *Client) NotesForFile(uri string, page *Page) (*NotesPage, error) {
	params := map[string]interface{}{"fileId": FileID{URI: uri}}
	if page != nil {
		params["page"] = page
	}
	var res NotesPage
	if err := c.requestInto("notes/for/file", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// NotesSet creates or replaces the note at the note's location. The
// author and modifiedBy fields are stripped before sending; the server
// fills them from the authenticated identity.
func (c *Client) NotesSet(note Note, verifyFileHash *string) (*NotesSetResult, error) {
	note.Author = ""
	note.ModifiedBy = ""
	params := map[string]interface{}{
		"note":           note,
		"verifyFileHash": verifyFileHash,
	}
	var res NotesSetResult
	if err := c.requestInto("notes/set", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// NotesRemove deletes the note at uri:line.
func (c *Client) NotesRemove(uri string, line int) (*NotesRemoveResult, error) {
	params := map[string]interface{}{
		"location": Location{FileID: FileID{URI: uri}, Line: line},
	}
	var res NotesRemoveResult
	if err := c.requestInto("notes/remove", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

type tagCountResult struct {
	Tags []TagCount `json:"tags"`
}

// NotesTagCount returns the hashtag histogram of the active project.
func (c *Client) NotesTagCount() ([]TagCount, error) {
	var res tagCountResult
	if err := c.requestInto("notes/tag/count", nil, &res); err != nil {
		return nil, err
	}
	return res.Tags, nil
}

func (c *Client) notesSearch(method, text string, page *Page) (*NotesPage, error) {
	params := map[string]interface{}{"text": text}
	if page != nil {
		params["page"] = page
	}
	var res NotesPage
	if err := c.requestInto(method, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// NotesSearch finds notes whose text contains the search string.
func (c *Client) NotesSearch(text string, page *Page) (*NotesPage, error) {
	return c.notesSearch("notes/search", text, page)
}

// NotesSearchTags finds notes carrying the given hashtag.
func (c *Client) NotesSearchTags(text string, page *Page) (*NotesPage, error) {
	return c.notesSearch("notes/search/tags", text, page)
}

// NotesSearchColumns filters notes by structured columns with an
// optional sort order.
func (c *Client) NotesSearchColumns(filter NotesFilter, order map[string]string, page *Page) (*NotesPage, error) {
	params := map[string]interface{}{"filter": filter}
	if order != nil {
		params["order"] = order
	}
	if page != nil {
		params["page"] = page
	}
	var res NotesPage
	if err := c.requestInto("notes/search/columns", params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
