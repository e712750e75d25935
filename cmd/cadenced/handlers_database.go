// handlers_database.go implements the music database commands.
//
// Filters
// =======
//
// find, search, count and the queue variants playlistfind and playlistsearch
// take one or more <type> <what> pairs. list takes them after its return
// type. Every pair must match for a song to
// be selected. The supported types are:
//
//	file, filename  the song URI
//	title           the title derived from the file name
//	any             either of the above
//
// The "find" family compares exactly; the "search" family compares
// case-insensitive substrings.

package main

import (
	"slices"
	"strings"

	"cadence.lopezb.com/internal/ack"
	"cadence.lopezb.com/internal/command"
	"cadence.lopezb.com/internal/engine"
)

type filterType int

const (
	filterURI filterType = iota
	filterTitle
	filterAny
)

var filterTypes = map[string]filterType{
	"file":     filterURI,
	"filename": filterURI,
	"title":    filterTitle,
	"any":      filterAny,
}

type filterItem struct {
	typ  filterType
	what string
}

// songFilter selects songs by URI and title.
type songFilter struct {
	items []filterItem
	exact bool
}

func parseFilter(args []string, exact bool) (*songFilter, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, ack.New(ack.ArgumentFormat, "incorrect arguments")
	}

	f := &songFilter{exact: exact}
	for i := 0; i < len(args); i += 2 {
		typ, ok := filterTypes[strings.ToLower(args[i])]
		if !ok {
			return nil, ack.Errorf(ack.ArgumentFormat, "\"%s\" is not known", args[i])
		}
		what := args[i+1]
		if !exact {
			what = strings.ToLower(what)
		}
		f.items = append(f.items, filterItem{typ: typ, what: what})
	}
	return f, nil
}

func (f *songFilter) matchValue(value, what string) bool {
	if f.exact {
		return value == what
	}
	return strings.Contains(strings.ToLower(value), what)
}

// match reports whether the song at uri satisfies every item.
func (f *songFilter) match(uri string) bool {
	title := engine.Song{URI: uri}.Title()
	for _, it := range f.items {
		var ok bool
		switch it.typ {
		case filterURI:
			ok = f.matchValue(uri, it.what)
		case filterTitle:
			ok = f.matchValue(title, it.what)
		case filterAny:
			ok = f.matchValue(uri, it.what) || f.matchValue(title, it.what)
		}
		if !ok {
			return false
		}
	}
	return true
}

// selectSongs returns the database songs matching args.
func (app *application) selectSongs(args []string, exact bool) ([]engine.Entry, error) {
	f, err := parseFilter(args, exact)
	if err != nil {
		return nil, err
	}
	return app.filterDatabase(f)
}

func (app *application) filterDatabase(f *songFilter) ([]engine.Entry, error) {
	entries, err := app.engine.Database().ListAll("")
	if err != nil {
		return nil, playlistError(err)
	}

	var out []engine.Entry
	for _, e := range entries {
		if !e.Dir && f.match(e.Path) {
			out = append(out, e)
		}
	}
	return out, nil
}

// handleFind handles the find command.
// Syntax: find <type> <what> [<type> <what>...]
func (app *application) handleFind(c *command.Client, argv []string) error {
	songs, err := app.selectSongs(argv[1:], true)
	if err != nil {
		return err
	}
	for _, e := range songs {
		printEntry(c, e)
	}
	return nil
}

// handleSearch handles the search command.
// Syntax: search <type> <what> [<type> <what>...]
func (app *application) handleSearch(c *command.Client, argv []string) error {
	songs, err := app.selectSongs(argv[1:], false)
	if err != nil {
		return err
	}
	for _, e := range songs {
		printEntry(c, e)
	}
	return nil
}

// handleCount handles the count command.
// Syntax: count <type> <what> [<type> <what>...]
func (app *application) handleCount(c *command.Client, argv []string) error {
	songs, err := app.selectSongs(argv[1:], true)
	if err != nil {
		return err
	}
	c.Pair("songs", len(songs))
	c.Pair("playtime", 0)
	return nil
}

// handleList handles the list command.
// Syntax: list <type> [<type> <what>...]
//
// Prints the distinct values of one tag over the matching songs, sorted.
// The three-argument form only ever accepted an album filter, which this
// database does not index.
func (app *application) handleList(c *command.Client, argv []string) error {
	typ, ok := filterTypes[strings.ToLower(argv[1])]
	if !ok {
		return ack.Errorf(ack.ArgumentFormat, "\"%s\" is not known", argv[1])
	}
	if typ == filterAny {
		return ack.New(ack.ArgumentFormat, "\"any\" is not a valid return tag type")
	}
	if len(argv) == 3 {
		return ack.New(ack.ArgumentFormat, "should be \"Album\" for 3 arguments")
	}

	f := &songFilter{exact: true}
	if len(argv) > 3 {
		var err error
		if f, err = parseFilter(argv[2:], true); err != nil {
			return ack.New(ack.ArgumentFormat, "not able to parse args")
		}
	}
	songs, err := app.filterDatabase(f)
	if err != nil {
		return err
	}

	key := "file"
	if typ == filterTitle {
		key = "Title"
	}
	seen := make(map[string]struct{}, len(songs))
	values := make([]string, 0, len(songs))
	for _, e := range songs {
		v := e.Path
		if typ == filterTitle {
			v = engine.Song{URI: e.Path}.Title()
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	slices.Sort(values)
	for _, v := range values {
		c.Pair(key, v)
	}
	return nil
}

func optionalPath(argv []string) string {
	if len(argv) < 2 {
		return ""
	}
	return argv[1]
}

// handleLsInfo handles the lsinfo command.
// Syntax: lsinfo [path]
//
// Listing the root also lists the stored playlists.
func (app *application) handleLsInfo(c *command.Client, argv []string) error {
	p := optionalPath(argv)
	entries, err := app.engine.Database().ListDir(p)
	if err != nil {
		return playlistError(err)
	}
	for _, e := range entries {
		printEntry(c, e)
	}
	if strings.Trim(p, "/") == "" {
		printPlaylists(c, app.engine.Playlists())
	}
	return nil
}

// handleListAll handles the listall command.
// Syntax: listall [path]
func (app *application) handleListAll(c *command.Client, argv []string) error {
	entries, err := app.engine.Database().ListAll(optionalPath(argv))
	if err != nil {
		return playlistError(err)
	}
	for _, e := range entries {
		if e.Dir {
			c.Pair("directory", e.Path)
		} else {
			c.Pair("file", e.Path)
		}
	}
	return nil
}

// handleListAllInfo handles the listallinfo command.
// Syntax: listallinfo [path]
func (app *application) handleListAllInfo(c *command.Client, argv []string) error {
	entries, err := app.engine.Database().ListAll(optionalPath(argv))
	if err != nil {
		return playlistError(err)
	}
	for _, e := range entries {
		printEntry(c, e)
	}
	return nil
}

// handleUpdate handles the update command.
// Syntax: update [path]
//
// The rescan runs before the reply, so a client that sees the job id also
// sees the refreshed database.
func (app *application) handleUpdate(c *command.Client, argv []string) error {
	id, err := app.engine.Update(optionalPath(argv))
	if err != nil {
		return playlistError(err)
	}
	c.Pair("updating_db", id)
	return nil
}
