package protocol

// Client-originated request types.
const (
	TypeLogin         = 100
	TypeUserData      = 101
	TypeCatalog       = 102
	TypeExecuteSaved  = 103
	TypeExecuteAdHoc  = 104
	TypeStopExecution = 106
	TypeRequestOutput = 107
)

// Server replies: 2xx answers the request whose type shares the final
// two digits, 3xx is its error counterpart.
const (
	TypeLoginOK           = 200
	TypeLoginError        = 300
	TypeUserDataOK        = 201
	TypeUserDataError     = 301
	TypeCatalogOK         = 202
	TypeCatalogError      = 302
	TypeExecuteSavedOK    = 203
	TypeExecuteSavedError = 303
	TypeExecuteAdHocOK    = 204
	TypeExecuteAdHocError = 304
	TypeStopOK            = 206
	TypeStopError         = 306
)

// Server pushes.
const (
	TypeNodeStatusOK      = 205
	TypeNodeStatusError   = 305
	TypeFinishedOK        = 207
	TypeFinishedError     = 307
)

// Server fault codes, sent instead of the expected reply.
const (
	TypeBadMessageID      = 395
	TypeUnknownType       = 396
	TypeTooManyExecutions = 397
	TypeExecutionsHalted  = 398
	TypeMaintenanceMode   = 399
)

// OKFor returns the success reply code for a request type.
func OKFor(requestType int) int { return requestType + 100 }

// ErrorFor returns the error reply code for a request type.
func ErrorFor(requestType int) int { return requestType + 200 }

// IsServerFault reports whether a type code is one of the out-of-band
// server fault codes.
func IsServerFault(typeCode int) bool {
	return typeCode >= TypeBadMessageID && typeCode <= TypeMaintenanceMode
}
