package main

import "cadence.lopezb.com/internal/command"

// Shorthands for the permission column of the command table.
const (
	permNone    = command.PermissionNone
	permRead    = command.PermissionRead
	permAdd     = command.PermissionAdd
	permControl = command.PermissionControl
	permAdmin   = command.PermissionAdmin
)

// commands builds the command registry. This is the single source of truth
// for what commands the server supports, who may run them, and how many
// arguments each one takes (-1: unchecked).
//
// The command_list_* brackets are not listed: the session interprets them
// before dispatch.
func (app *application) commands() *command.Registry {
	h := func(f command.HandlerFunc) command.Handler { return f }

	return command.NewRegistry(
		// Connection
		command.Descriptor{Name: "close", Permission: permNone, Min: -1, Max: -1, Handler: h(app.handleClose)},
		command.Descriptor{Name: "commands", Permission: permNone, Min: 0, Max: 0, Handler: h(app.handleCommands)},
		command.Descriptor{Name: "idle", Permission: permRead, Min: 0, Max: -1, Handler: h(app.handleIdle)},
		command.Descriptor{Name: "kill", Permission: permAdmin, Min: -1, Max: -1, Handler: h(app.handleKill)},
		command.Descriptor{Name: "noidle", Permission: permNone, Min: 0, Max: 0, Handler: h(app.handlePing)},
		command.Descriptor{Name: "notcommands", Permission: permNone, Min: 0, Max: 0, Handler: h(app.handleNotCommands)},
		command.Descriptor{Name: "password", Permission: permNone, Min: 1, Max: 1, Handler: h(app.handlePassword)},
		command.Descriptor{Name: "ping", Permission: permNone, Min: 0, Max: 0, Handler: h(app.handlePing)},
		command.Descriptor{Name: "tagtypes", Permission: permRead, Min: 0, Max: 0, Handler: h(app.handleTagTypes)},
		command.Descriptor{Name: "urlhandlers", Permission: permRead, Min: 0, Max: 0, Handler: h(app.handleURLHandlers)},

		// Status
		command.Descriptor{Name: "clearerror", Permission: permControl, Min: 0, Max: 0, Handler: h(app.handleClearError)},
		command.Descriptor{Name: "currentsong", Permission: permRead, Min: 0, Max: 0, Handler: h(app.handleCurrentSong)},
		command.Descriptor{Name: "stats", Permission: permRead, Min: 0, Max: 0, Handler: h(app.handleStats)},
		command.Descriptor{Name: "status", Permission: permRead, Min: 0, Max: 0, Handler: h(app.handleStatus)},

		// Playback
		command.Descriptor{Name: "crossfade", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleCrossfade)},
		command.Descriptor{Name: "next", Permission: permControl, Min: 0, Max: 0, Handler: h(app.handleNext)},
		command.Descriptor{Name: "pause", Permission: permControl, Min: 0, Max: 1, Handler: h(app.handlePause)},
		command.Descriptor{Name: "play", Permission: permControl, Min: 0, Max: 1, Handler: h(app.handlePlay)},
		command.Descriptor{Name: "playid", Permission: permControl, Min: 0, Max: 1, Handler: h(app.handlePlayID)},
		command.Descriptor{Name: "previous", Permission: permControl, Min: 0, Max: 0, Handler: h(app.handlePrevious)},
		command.Descriptor{Name: "random", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleRandom)},
		command.Descriptor{Name: "repeat", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleRepeat)},
		command.Descriptor{Name: "seek", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handleSeek)},
		command.Descriptor{Name: "seekid", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handleSeekID)},
		command.Descriptor{Name: "setvol", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleSetVol)},
		command.Descriptor{Name: "stop", Permission: permControl, Min: 0, Max: 0, Handler: h(app.handleStop)},
		command.Descriptor{Name: "volume", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleVolume)},

		// Outputs
		command.Descriptor{Name: "disableoutput", Permission: permAdmin, Min: 1, Max: 1, Handler: h(app.handleDisableOutput)},
		command.Descriptor{Name: "enableoutput", Permission: permAdmin, Min: 1, Max: 1, Handler: h(app.handleEnableOutput)},
		command.Descriptor{Name: "outputs", Permission: permRead, Min: 0, Max: 0, Handler: h(app.handleOutputs)},

		// Queue
		command.Descriptor{Name: "add", Permission: permAdd, Min: 1, Max: 1, Handler: h(app.handleAdd)},
		command.Descriptor{Name: "addid", Permission: permAdd, Min: 1, Max: 2, Handler: h(app.handleAddID)},
		command.Descriptor{Name: "clear", Permission: permControl, Min: 0, Max: 0, Handler: h(app.handleClear)},
		command.Descriptor{Name: "delete", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleDelete)},
		command.Descriptor{Name: "deleteid", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleDeleteID)},
		command.Descriptor{Name: "move", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handleMove)},
		command.Descriptor{Name: "moveid", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handleMoveID)},
		command.Descriptor{Name: "playlist", Permission: permRead, Min: 0, Max: 0, Handler: h(app.handlePlaylist)},
		command.Descriptor{Name: "playlistfind", Permission: permRead, Min: 2, Max: -1, Handler: h(app.handlePlaylistFind)},
		command.Descriptor{Name: "playlistid", Permission: permRead, Min: 0, Max: 1, Handler: h(app.handlePlaylistID)},
		command.Descriptor{Name: "playlistinfo", Permission: permRead, Min: 0, Max: 1, Handler: h(app.handlePlaylistInfo)},
		command.Descriptor{Name: "playlistsearch", Permission: permRead, Min: 2, Max: -1, Handler: h(app.handlePlaylistSearch)},
		command.Descriptor{Name: "plchanges", Permission: permRead, Min: 1, Max: 1, Handler: h(app.handlePlChanges)},
		command.Descriptor{Name: "plchangesposid", Permission: permRead, Min: 1, Max: 1, Handler: h(app.handlePlChangesPosID)},
		command.Descriptor{Name: "shuffle", Permission: permControl, Min: 0, Max: 0, Handler: h(app.handleShuffle)},
		command.Descriptor{Name: "swap", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handleSwap)},
		command.Descriptor{Name: "swapid", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handleSwapID)},

		// Stored playlists
		command.Descriptor{Name: "listplaylist", Permission: permRead, Min: 1, Max: 1, Handler: h(app.handleListPlaylist)},
		command.Descriptor{Name: "listplaylistinfo", Permission: permRead, Min: 1, Max: 1, Handler: h(app.handleListPlaylistInfo)},
		command.Descriptor{Name: "listplaylists", Permission: permRead, Min: 0, Max: 0, Handler: h(app.handleListPlaylists)},
		command.Descriptor{Name: "load", Permission: permAdd, Min: 1, Max: 1, Handler: h(app.handleLoad)},
		command.Descriptor{Name: "playlistadd", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handlePlaylistAdd)},
		command.Descriptor{Name: "playlistclear", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handlePlaylistClear)},
		command.Descriptor{Name: "playlistdelete", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handlePlaylistDelete)},
		command.Descriptor{Name: "playlistmove", Permission: permControl, Min: 3, Max: 3, Handler: h(app.handlePlaylistMove)},
		command.Descriptor{Name: "rename", Permission: permControl, Min: 2, Max: 2, Handler: h(app.handleRename)},
		command.Descriptor{Name: "rm", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleRm)},
		command.Descriptor{Name: "save", Permission: permControl, Min: 1, Max: 1, Handler: h(app.handleSave)},

		// Database
		command.Descriptor{Name: "count", Permission: permRead, Min: 2, Max: -1, Handler: h(app.handleCount)},
		command.Descriptor{Name: "find", Permission: permRead, Min: 2, Max: -1, Handler: h(app.handleFind)},
		command.Descriptor{Name: "list", Permission: permRead, Min: 1, Max: -1, Handler: h(app.handleList)},
		command.Descriptor{Name: "listall", Permission: permRead, Min: 0, Max: 1, Handler: h(app.handleListAll)},
		command.Descriptor{Name: "listallinfo", Permission: permRead, Min: 0, Max: 1, Handler: h(app.handleListAllInfo)},
		command.Descriptor{Name: "lsinfo", Permission: permRead, Min: 0, Max: 1, Handler: h(app.handleLsInfo)},
		command.Descriptor{Name: "search", Permission: permRead, Min: 2, Max: -1, Handler: h(app.handleSearch)},
		command.Descriptor{Name: "update", Permission: permAdmin, Min: 0, Max: 1, Handler: h(app.handleUpdate)},
	)
}
