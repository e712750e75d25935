package command

// RunList executes a command list and writes its terminal frame.
//
// The entries run strictly in order. The first failure is reported with the
// position of the failing entry and ends the list; later entries never run and
// earlier ones are not undone. In verbose mode every successful entry that is
// followed by another one is acknowledged with list_OK. A list in which every
// entry succeeded, including an empty one, ends with a single OK.
//
// Lifecycle outcomes (close, kill) and a suppressed reply end the list
// immediately and are returned to the connection owner unchanged. If the
// client's transport disappears between entries, processing stops without
// writing anything else.
func (d *Dispatcher) RunList(c *Client, r *Responder, lines []string, verbose bool) Result {
	//
	// DESIGN
	// ------
	//
	// The sequence index doubles as the loop index: an entry only runs if every
	// entry before it succeeded, so the number of commands completed so far is
	// exactly the position of the current one. The index lives on the Responder
	// only for the duration of the list and is reset on the way out, so a later
	// top-level failure is attributed to position 0 again.
	//
	defer r.setListIndex(0)

	for seq, line := range lines {
		r.setListIndex(seq)

		res := d.Dispatch(c, r, line)
		if c.Expired() {
			return Result{Outcome: Close, Command: res.Command}
		}

		switch res.Outcome {
		case OK:
			if verbose && seq < len(lines)-1 {
				_ = r.ListOK()
			}
		case Failed:
			_ = r.Fail(res.Err)
			return res
		default:
			return res
		}
	}

	_ = r.OK()
	return Result{Outcome: OK}
}
