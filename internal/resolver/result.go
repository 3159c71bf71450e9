package resolver

// Status is the terminal outcome of a resolution that did not fail.
type Status uint8

const (
	StatusFound Status = iota + 1
	// StatusNoHistory means the address has never been used.
	StatusNoHistory
	// StatusExhausted means the whole history was scanned without a match.
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNoHistory:
		return "no history"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is the outcome of a resolution. NotFound is a normal result,
// never an error.
type Result struct {
	Value  string // public key hex or cid when found
	TxID   string // transaction the value was taken from
	Status Status
}

// Found reports whether the resolution produced a value.
func (r Result) Found() bool {
	return r.Status == StatusFound
}

// NotFound reports whether the resolution ended without a value.
func (r Result) NotFound() bool {
	return r.Status == StatusNoHistory || r.Status == StatusExhausted
}

func found(value, txid string) Result {
	return Result{Value: value, TxID: txid, Status: StatusFound}
}

var (
	noHistory = Result{Status: StatusNoHistory}
	exhausted = Result{Status: StatusExhausted}
)
