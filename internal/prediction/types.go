package prediction

import (
	"fmt"
	"strings"
)

// PriceKind selects which daily price the model predicts
type PriceKind int

const (
	Open PriceKind = iota
	High
	Low
	Close
)

var priceKindLabels = [...]string{"open", "high", "low", "close"}

// String returns the lowercase label used in messages and callback data
func (k PriceKind) String() string {
	if k < Open || k > Close {
		return fmt.Sprintf("PriceKind(%d)", int(k))
	}
	return priceKindLabels[k]
}

// Valid reports whether k is one of the known kinds
func (k PriceKind) Valid() bool {
	return k >= Open && k <= Close
}

// ParsePriceKind accepts a label such as "close" or "CLOSE"
func ParsePriceKind(s string) (PriceKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, label := range priceKindLabels {
		if label == s {
			return PriceKind(i), true
		}
	}
	return 0, false
}

// PriceKinds lists all kinds in prompt order
func PriceKinds() []PriceKind {
	return []PriceKind{Open, High, Low, Close}
}

// Request is one scoring call. The instance vector order is part of the
// deployed model's contract.
type Request struct {
	SignatureName   string
	Interval        int
	InstrumentIndex int
	PriceKind       *PriceKind
}

// Instances returns [interval, index] or [interval, index, kind]
func (r Request) Instances() []int {
	if r.PriceKind == nil {
		return []int{r.Interval, r.InstrumentIndex}
	}
	return []int{r.Interval, r.InstrumentIndex, int(*r.PriceKind)}
}

// payload is the serving API request body
type payload struct {
	SignatureName string `json:"signature_name"`
	Instances     []int  `json:"instances"`
}

// ErrorKind classifies prediction failures
type ErrorKind int

const (
	// Unreachable: transport failures or 5xx after all attempts
	Unreachable ErrorKind = iota + 1
	// Rejected: the service answered 4xx; the request shape is wrong
	Rejected
	// EmptyResult: 2xx without a usable predictions array
	EmptyResult
)

func (k ErrorKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Rejected:
		return "rejected"
	case EmptyResult:
		return "empty_result"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Predict
type Error struct {
	Kind     ErrorKind
	Status   int
	Detail   string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	msg := "prediction " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
