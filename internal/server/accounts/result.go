package accounts

// Status classifies an operation outcome for the transport layer. The set
// is closed: every path through the orchestrator ends in exactly one of
// these.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusBadRequest   Status = "bad_request"
	StatusConflict     Status = "conflict"
	StatusUnauthorized Status = "unauthorized"
	StatusForbidden    Status = "forbidden"
	StatusInternal     Status = "internal"
)

// Result is the caller-visible outcome of an account operation. Message is
// safe to show to end users; internal failure detail stays in the logs.
type Result struct {
	Status  Status
	Message string
}

func success(msg string) Result      { return Result{Status: StatusSuccess, Message: msg} }
func badRequest(msg string) Result   { return Result{Status: StatusBadRequest, Message: msg} }
func conflict(msg string) Result     { return Result{Status: StatusConflict, Message: msg} }
func unauthorized(msg string) Result { return Result{Status: StatusUnauthorized, Message: msg} }
func forbidden(msg string) Result    { return Result{Status: StatusForbidden, Message: msg} }

func internal() Result {
	return Result{Status: StatusInternal, Message: "Something went wrong. Please try again later."}
}
