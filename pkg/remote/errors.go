package remote

import (
	fluxerr "github.com/fluxcd/stackdiff/pkg/errors"
)

func UnavailableError(err error) error {
	return &fluxerr.Error{
		Type: fluxerr.User,
		Help: `Cannot contact stackdiffd

To service this request, we need to ask the stackdiff daemon for the
diffs it has computed or stored. But we can't connect to it at
present.

This may be because it's not running at all, the URL given with
--url (or $STACKDIFF_URL) is wrong, or it has been firewalled.

If you are sure stackdiffd is running, you can simply wait a few
seconds and try the operation again.

`,
		Err: err,
	}
}

func DaemonError(err error) error {
	return &fluxerr.Error{
		Type: fluxerr.Server,
		Help: `Error from stackdiffd

The stackdiff daemon reported this error:

    ` + err.Error() + `

which indicates that it is running, but cannot complete the request.
This may be because GitHub is unreachable, or the access token it
uses has expired. Check the stackdiffd logs for the details.

`,
		Err: err,
	}
}
