package processor

import "fmt"

// Error is a numeric program error. Values are stable and surface to
// clients as custom error codes.
type Error uint32

const (
	AlreadyInitialized Error = iota
	NotInitialized
	MetadataDerivedKeyInvalid
	InvalidSystemProgram
	InvalidJson
	SerializeFailed
	InvalidAuthority
)

var errorMessages = [...]string{
	AlreadyInitialized:        "account already initialized",
	NotInitialized:            "account not initialized",
	MetadataDerivedKeyInvalid: "metadata derived key invalid",
	InvalidSystemProgram:      "invalid system program",
	InvalidJson:               "invalid json",
	SerializeFailed:           "failed to serialize record",
	InvalidAuthority:          "invalid authority",
}

func (e Error) Error() string {
	if int(e) < len(errorMessages) {
		return errorMessages[e]
	}
	return fmt.Sprintf("custom program error: %#x", uint32(e))
}

// Code is the wire value of e.
func (e Error) Code() uint32 { return uint32(e) }
