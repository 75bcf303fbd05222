package cli

import (
	"errors"

	"github.com/MakeNowJust/heredoc"
)

var (
	ErrConfigNotFound = errors.New(heredoc.Doc(`
	Config file not found. Loading from defaults...

	Run "jes config init" to initialize a new configuration file
	Run "jes help environment" for more information.

	Alternatively, make a "jes.yaml" file in the current directory
`))

	errIndexRequired = errors.New(`no index given: pass --index or set "elasticsearch.index" in the config`)
)
