package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RegisterDestinationMessage] = (*RegisterDestinationCommand)(nil)
	_ gocmd.Commander[RemoveDestinationMessage]   = (*RemoveDestinationCommand)(nil)
	_ gocmd.Commander[RunPollMessage]             = (*RunPollCommand)(nil)
)
