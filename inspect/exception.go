package inspect

import (
	"github.com/kevinboenisch/jpodbgr/interp"
	"github.com/kevinboenisch/jpodbgr/wire"
)

// Exception fills resp with traceback's text, truncated to whatever
// fits in the frame's remaining budget with a "..." suffix (§4.3
// "Exception response"). Unlike Stack and Variables this is never
// streamed: the host gets one response and it is always complete,
// just possibly truncated.
func Exception(resp *wire.Frame, traceback string) error {
	budget := resp.Remaining()
	if budget < 0 {
		return resp.AppendZString(traceback)
	}
	max := budget - 1 // one byte reserved for the terminator
	if max < 0 {
		max = 0
	}
	return resp.AppendZString(interp.Truncate(traceback, max))
}
