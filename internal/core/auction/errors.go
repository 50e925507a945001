package auction

import "fmt"

// Result is an operation result code. Codes are grouped in ranges by failure
// class, following the same convention as transaction result codes in ledger
// engines:
//
//	res (0): success
//	rev (100-199): validation failure, caller can retry with corrected input
//	rea (200-299): access failure, caller must satisfy the gating condition
//	rec (300-399): concurrency/staleness, caller must re-read state and retry
//	rex (400-499): external dependency integrity failure
//	ref (500-599): fatal or administrative-only conditions
type Result int

const (
	ResSUCCESS Result = 0

	// rev codes (100-199): validation
	RevNO_AUCTION                 Result = 100
	RevUNKNOWN_PRESET             Result = 101
	RevUNKNOWN_WHITELIST          Result = 102
	RevWARMUP_TOO_SHORT           Result = 103
	RevBIDDING_NOT_ALLOWED        Result = 104
	RevCREATION_PAUSED            Result = 105
	RevAUCTION_NOT_STARTED        Result = 106
	RevAUCTION_ENDED              Result = 107
	RevAUCTION_NOT_ENDED          Result = 108
	RevBID_BELOW_STARTING_BID     Result = 109
	RevBID_TOO_LOW                Result = 110
	RevAUCTION_HAS_BID            Result = 111
	RevALREADY_CLAIMED            Result = 112
	RevCANCELLED                  Result = 113
	RevNO_BUY_IT_NOW_PRICE        Result = 114
	RevCAN_ONLY_LOWER_BUY_NOW     Result = 115
	RevHIGHEST_BID_TOO_HIGH       Result = 116
	RevLOT_MISMATCH               Result = 117
	RevINVALID_RECIPIENT          Result = 118
	RevINVALID_TIMING             Result = 119
	RevDEADLINE_EXPIRED           Result = 120
	RevSWAP_OUTPUT_INSUFFICIENT   Result = 121
	RevBAD_AMOUNT                 Result = 122

	// rea codes (200-299): access
	ReaNOT_WHITELISTED  Result = 200
	ReaMUST_BE_IN_GAME  Result = 201
	ReaNOT_OWNER        Result = 202
	ReaNOT_OPERATOR     Result = 203
	ReaBID_UNAUTHORIZED Result = 204

	// rec codes (300-399): concurrency / staleness
	RecAUCTION_BUSY Result = 300

	// rex codes (400-499): external dependency integrity
	RexTRANSFER_FAILED    Result = 400
	RexTRANSFER_INTEGRITY Result = 401
	RexESCROW_FAILED      Result = 402
	RexSWAP_FAILED        Result = 403

	// ref codes (500-599): fatal / administrative
	RefINTERNAL     Result = 500
	RefSTUCK_DEBT   Result = 501
	RefSTORE_FAILED Result = 502
)

// IsSuccess returns true if the result indicates success.
func (r Result) IsSuccess() bool {
	return r == ResSUCCESS
}

// IsValidation returns true for validation failures.
func (r Result) IsValidation() bool {
	return r >= 100 && r < 200
}

// IsAccess returns true for access failures.
func (r Result) IsAccess() bool {
	return r >= 200 && r < 300
}

// IsStale returns true for concurrency/staleness failures.
func (r Result) IsStale() bool {
	return r >= 300 && r < 400
}

// IsExternal returns true for external dependency failures.
func (r Result) IsExternal() bool {
	return r >= 400 && r < 500
}

// IsRecoverable reports whether the caller can recover by correcting input,
// meeting a gating condition, or re-reading state and retrying.
func (r Result) IsRecoverable() bool {
	return r.IsValidation() || r.IsAccess() || r.IsStale()
}

// Message returns a human-readable message for the result.
func (r Result) Message() string {
	switch r {
	case ResSUCCESS:
		return "The operation was applied."
	case RevNO_AUCTION:
		return "No such auction."
	case RevUNKNOWN_PRESET:
		return "UnknownPreset"
	case RevUNKNOWN_WHITELIST:
		return "UnknownWhitelist"
	case RevWARMUP_TOO_SHORT:
		return "MinimumWarmupPeriodNotReached"
	case RevBIDDING_NOT_ALLOWED:
		return "Bidding is disabled for this token contract."
	case RevCREATION_PAUSED:
		return "CreationPaused"
	case RevAUCTION_NOT_STARTED:
		return "Auction has not started."
	case RevAUCTION_ENDED:
		return "Auction has ended."
	case RevAUCTION_NOT_ENDED:
		return "Auction has not ended."
	case RevBID_BELOW_STARTING_BID:
		return "BidAmountBelowStartingBid"
	case RevBID_TOO_LOW:
		return "BidTooLow"
	case RevAUCTION_HAS_BID:
		return "AuctionAlreadyHasBid"
	case RevALREADY_CLAIMED:
		return "AlreadyClaimed"
	case RevCANCELLED:
		return "Auction is cancelled."
	case RevNO_BUY_IT_NOW_PRICE:
		return "NoBuyItNowPrice"
	case RevCAN_ONLY_LOWER_BUY_NOW:
		return "CanOnlyLowerBuyNow"
	case RevHIGHEST_BID_TOO_HIGH:
		return "HighestBidTooHighToBuyNow"
	case RevLOT_MISMATCH:
		return "Bid does not match the auctioned lot."
	case RevINVALID_RECIPIENT:
		return "Invalid recipient address"
	case RevINVALID_TIMING:
		return "Invalid start or end time."
	case RevDEADLINE_EXPIRED:
		return "DeadlineExpired"
	case RevSWAP_OUTPUT_INSUFFICIENT:
		return "Swap output below required minimum."
	case RevBAD_AMOUNT:
		return "Invalid amount."
	case ReaNOT_WHITELISTED:
		return "NotWhitelisted"
	case ReaMUST_BE_IN_GAME:
		return "Must be in-game to bid"
	case ReaNOT_OWNER:
		return "Caller is not the auction owner."
	case ReaNOT_OPERATOR:
		return "Caller is not the operator."
	case ReaBID_UNAUTHORIZED:
		return "Bid authorization failed."
	case RecAUCTION_BUSY:
		return "Another operation on this auction is in flight."
	case RexTRANSFER_FAILED:
		return "Payment transfer failed."
	case RexTRANSFER_INTEGRITY:
		return "TransferIntegrityViolation"
	case RexESCROW_FAILED:
		return "Asset escrow transfer failed."
	case RexSWAP_FAILED:
		return "Swap venue call failed."
	case RefINTERNAL:
		return "Internal error."
	case RefSTUCK_DEBT:
		return "Auction has unsettled debt."
	case RefSTORE_FAILED:
		return "Persistence write failed."
	default:
		return "Unknown result."
	}
}

// OpError wraps a Result as an error, optionally carrying an underlying cause
// from an external collaborator.
type OpError struct {
	Code  Result
	Cause error
}

func (e *OpError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code.Message(), e.Cause)
	}
	return e.Code.Message()
}

func (e *OpError) Unwrap() error {
	return e.Cause
}

// NewOpError wraps a Result as an error.
func NewOpError(code Result) error {
	return &OpError{Code: code}
}

// NewOpErrorCause wraps a Result with an underlying cause.
func NewOpErrorCause(code Result, cause error) error {
	return &OpError{Code: code, Cause: cause}
}

func errResult(code Result) error {
	return NewOpError(code)
}

func errResultCause(code Result, cause error) error {
	return NewOpErrorCause(code, cause)
}

// ResultOf extracts the Result carried by err, or RefINTERNAL for foreign errors.
func ResultOf(err error) Result {
	if err == nil {
		return ResSUCCESS
	}
	if oe, ok := err.(*OpError); ok {
		return oe.Code
	}
	return RefINTERNAL
}
