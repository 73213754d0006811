package wire

// Command tags (host → target). Always available regardless of
// control status. TagStart below is accepted in any status as well.
const (
	TagTerminate = "DBG_TRMT"
)

// Command tags (host → target) handled by the dispatcher under the
// mutex. TagStart is accepted in any status, since it is what moves
// the machine out of NotEnabled; the other two, and TagPause below,
// only once the machine is enabled.
const (
	TagStart          = "DBG_STRT"
	TagSetBreakpoints = "DBG_BRKP"
	TagSetExcBreak    = "DBG_EBRK"
)

// Pause/continue/step/inspection command tags (host → target). All
// but TagPause are relayed to the control state machine's in-loop
// receive while stopped; TagPause is handled by the dispatcher itself.
//
// TagStackReq, TagVarsReq, and TagExcReq double as their own response
// tags: a stack/variables/exception response carries the same tag it
// was requested under, correlated back to its request by frame id
// alone (no separate response tag is named).
const (
	TagPause    = "DBG_PAUS"
	TagContinue = "DBG_CONT"
	TagStepInto = "DBG_SINT"
	TagStepOver = "DBG_SOVR"
	TagStepOut  = "DBG_SOUT"
	TagStackReq = "DBG_STAC"
	TagVarsReq  = "DBG_VARS"
	TagExcReq   = "DBG_EXCP"
)

// Event/response tags (target → host).
const (
	TagStopped      = "DBG_STOP"
	TagModuleLoaded = "DBG_MODL"
	TagDone         = "DBG_DONE"
)

// Reason tags: the fixed 8-byte payload of a DBG_STOP event, one per
// cause the core can stop for.
const (
	ReasonStarting   = ":STARTIN"
	ReasonPaused     = ":PAUSED_"
	ReasonBreakpoint = ":BREAKPT"
	ReasonStepInto   = ":SINT___"
	ReasonStepOver   = ":SOVR___"
	ReasonStepOut    = ":SOUT___"
	ReasonException  = ":EXCEPT_"
)
