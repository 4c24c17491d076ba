package errs

const (
	ErrCode_OK        = 0
	ErrCode_Unknown   = 1
	ErrCode_Unmarshal = 2
	ErrCode_Marshal   = 3

	ErrCode_NilLinda    = 10
	ErrCode_BadKey      = 11
	ErrCode_BadTime     = 12
	ErrCode_BadPeriod   = 13
	ErrCode_BadCount    = 14
	ErrCode_AtomicState = 15
	ErrCode_BadOp       = 16
	ErrCode_Closed      = 17
)

var (
	Unknown   = CreateCodeError(ErrCode_Unknown, "UNKNOWN")
	Unmarshal = CreateCodeError(ErrCode_Unmarshal, "UNMARSHAL")
	Marshal   = CreateCodeError(ErrCode_Marshal, "MARSHAL")

	NilLinda    = CreateCodeError(ErrCode_NilLinda, "NIL_LINDA")
	BadKey      = CreateCodeError(ErrCode_BadKey, "BAD_KEY")
	BadTime     = CreateCodeError(ErrCode_BadTime, "BAD_TIME")
	BadPeriod   = CreateCodeError(ErrCode_BadPeriod, "BAD_PERIOD")
	BadCount    = CreateCodeError(ErrCode_BadCount, "BAD_COUNT")
	AtomicState = CreateCodeError(ErrCode_AtomicState, "ATOMIC_STATE")
	BadOp       = CreateCodeError(ErrCode_BadOp, "BAD_OP")
	Closed      = CreateCodeError(ErrCode_Closed, "CLOSED")
)
