// Package core provides the request-scoped analysis service: load, recode,
// aggregate, regress. This package has no HTTP dependencies.
//
// # Error Codes Reference
//
// Errors carry stable support codes so users can quote them for diagnosis:
//
//	FMT001 - Unsupported format: the file extension is not a known format
//	         Action: Upload a .csv, .parquet, .sas7bdat, or .dta file
//
//	CAP001 - Missing decoder: the format is recognized but this build
//	         cannot decode it (SAS XPORT)
//	         Action: Convert the file to CSV or Parquet
//
//	CAP002 - No GLM solver: regression is unavailable in this build
//	         Action: Use the prevalence endpoints, or deploy a build with
//	         the solver enabled
//
//	FIT001 - Fit failure: the model did not converge or hit a numerical
//	         error; the message carries the solver diagnostic
//	         Action: Reduce covariates or check for separation in the data
//
//	LIM001 - System busy: too many model fits in progress
//	         Action: Please wait a moment and try again
//
//	FILE001 - No file: no file was provided with the request
//	FILE002 - File too large: the upload exceeds the configured size limit
//
//	GEN001 - Fallback for anything unclassified
package core

import (
	"context"
	"errors"
	"strings"

	"github.com/epistat/t2d-analyzer/internal/glm"
	"github.com/epistat/t2d-analyzer/internal/loader"
)

// ErrBusy is returned when all fit slots are occupied and the wait timeout
// expires. Clients should retry after a short delay.
var ErrBusy = errors.New("too many concurrent model fits, please try again later")

// ErrSolverUnavailable is the capability-unavailable condition for builds
// without a GLM solver wired in.
var ErrSolverUnavailable = errors.New("GLM solver is not available")

// UserMessage is a user-facing rendering of an internal error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

// MapError translates an internal error into a user-friendly message with a
// support code. The technical error should still be logged server-side.
func MapError(err error) UserMessage {
	switch {
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return UserMessage{
			Message: err.Error(),
			Action:  "Upload a .csv, .parquet, .sas7bdat, or .dta file",
			Code:    "FMT001",
		}
	case errors.Is(err, loader.ErrMissingCapability):
		return UserMessage{
			Message: err.Error(),
			Action:  "Convert the file to CSV or Parquet",
			Code:    "CAP001",
		}
	case errors.Is(err, ErrSolverUnavailable):
		return UserMessage{
			Message: "Regression is not available in this deployment",
			Action:  "Use the prevalence endpoints instead",
			Code:    "CAP002",
		}
	case errors.Is(err, glm.ErrFitFailure):
		return UserMessage{
			Message: err.Error(),
			Action:  "Reduce the covariate list or check the data for separation",
			Code:    "FIT001",
		}
	case errors.Is(err, ErrBusy):
		return UserMessage{
			Message: "The system is busy fitting other models",
			Action:  "Please wait a moment and try again",
			Code:    "LIM001",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "GEN002",
		}
	case err != nil && strings.Contains(err.Error(), "no file provided"):
		return UserMessage{
			Message: "No file was provided",
			Action:  "Attach a survey extract as the 'file' form field",
			Code:    "FILE001",
		}
	}
	return UserMessage{
		Message: "Something went wrong processing the request",
		Action:  "Please try again; quote code GEN001 if it persists",
		Code:    "GEN001",
	}
}
