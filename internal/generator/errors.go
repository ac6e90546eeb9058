package generator

import (
	"errors"
	"fmt"

	"github.com/datasync-solution/bmc-analyst/internal/report"
)

// ErrGeneration matches every *Error via errors.Is.
var ErrGeneration = errors.New("generation failed")

// ErrMissingInput is returned when a request lacks an upstream artifact
// its kind depends on.
var ErrMissingInput = errors.New("missing upstream artifact")

// Reason classifies why a generation failed.
type Reason string

const (
	ReasonTransport   Reason = "transport"
	ReasonTimeout     Reason = "timeout"
	ReasonUnavailable Reason = "unavailable" // breaker open
	ReasonMalformed   Reason = "malformed"   // parse or schema failure on every attempt
)

// Error is the failure of one generation call. No artifact accompanies it.
type Error struct {
	Kind     report.Kind
	Reason   Reason
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generate %s: %s after %d attempt(s): %v", e.Kind, e.Reason, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrGeneration }

var userMessages = map[report.Kind]string{
	report.KindAnalysis: "দুঃখিত, এনালাইসিস করতে সমস্যা হচ্ছে। অনুগ্রহ করে আবার চেষ্টা করুন।",
	report.KindBudget:   "বাজেট তৈরি করতে সমস্যা হয়েছে। দয়া করে আবার চেষ্টা করুন।",
	report.KindCashFlow: "রিস্ক এনালাইসিস করতে সমস্যা হয়েছে। দয়া করে আবার চেষ্টা করুন।",
	report.KindLaunch:   "লঞ্চ ড্যাশবোর্ড জেনারেট করতে সমস্যা হয়েছে। দয়া করে আবার চেষ্টা করুন।",
}

// UserMessage is the localized notice shown when generation of kind fails.
func UserMessage(kind report.Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[report.KindAnalysis]
}

// UserMessage returns the localized notice for this failure.
func (e *Error) UserMessage() string { return UserMessage(e.Kind) }
