package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SuccessMessage is the body message of a successful check.
const SuccessMessage = "Hello World with DB!"

type Outcome int

const (
	Success Outcome = iota
	Failure
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is the outcome of one check. Message is empty only for Success.
type Result struct {
	Outcome Outcome
	Message string
}

func (r Result) OK() bool {
	return r.Outcome == Success
}

func succeeded() Result {
	return Result{Outcome: Success}
}

func failed(err error) Result {
	return Result{Outcome: Failure, Message: "DB error: " + err.Error()}
}

func timedOut(deadline time.Duration) Result {
	return Result{
		Outcome: Timeout,
		Message: fmt.Sprintf("DB check timeout: deadline of %s exceeded", deadline),
	}
}

// resultFromError maps a probe error. A probe failed by its own deadline is a
// timeout, not a database error.
func resultFromError(err error, deadline time.Duration) Result {
	switch {
	case err == nil:
		return succeeded()
	case errors.Is(err, context.DeadlineExceeded):
		return timedOut(deadline)
	default:
		return failed(err)
	}
}
