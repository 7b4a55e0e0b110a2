package harness

import (
	"fmt"
	"log/slog"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/verify"
)

// evaluate runs one verification against the recorded calls. It returns
// nil if the outcome is the expected one: the verification held, or it
// failed and Fails is set. Usage errors such as an invalid cardinality are
// always returned.
func evaluate(calls []*call.Call, v Verification, logger *slog.Logger) error {
	var verifier *verify.Verifier
	if v.Call != nil {
		if *v.Call < 0 || *v.Call >= len(calls) {
			return fmt.Errorf("no call #%d, %d calls were recorded", *v.Call, len(calls))
		}
		verifier = verify.ForCall(calls[*v.Call], verify.WithLogger(logger))
	} else {
		verifier = verify.ForCalls(calls, verify.WithLogger(logger))
	}
	selectCardinality(verifier, v)

	_, err := runCheck(verifier, v)

	logger.Debug("verification evaluated",
		"check", v.Check,
		"fails", v.Fails,
		"held", err == nil)

	switch {
	case err == nil && v.Fails:
		return fmt.Errorf("%s held but was expected to fail", v.Check)
	case err == nil:
		return nil
	case verify.IsAssertionError(err) && v.Fails:
		return nil
	}
	return err
}

func selectCardinality(verifier *verify.Verifier, v Verification) {
	switch {
	case v.Never:
		verifier.Never()
	case v.Once:
		verifier.Once()
	case v.Twice:
		verifier.Twice()
	case v.Thrice:
		verifier.Thrice()
	case v.Times != nil:
		verifier.Times(*v.Times)
	case v.AtLeast != nil:
		verifier.AtLeast(*v.AtLeast)
	case v.AtMost != nil:
		verifier.AtMost(*v.AtMost)
	case len(v.Between) == 2:
		verifier.Between(v.Between[0], v.Between[1])
	}
	if v.Always {
		verifier.Always()
	}
}

func runCheck(verifier *verify.Verifier, v Verification) (*verify.Evidence, error) {
	var matches []verify.ErrorMatch
	if v.Error != nil {
		matches = append(matches, errorMessage(*v.Error))
	}

	args, err := expectedValues(v.Args)
	if err != nil {
		return nil, err
	}

	switch v.Check {
	case CheckUsed:
		return verifier.Used()
	case CheckProduced:
		return verifier.Produced(args...)
	case CheckReceived:
		return verifier.Received(args...)
	case CheckReceivedException:
		return verifier.ReceivedException(matches...)
	case CheckConsumed:
		return verifier.Consumed()
	case CheckReturned:
		return verifier.Returned(args...)
	case CheckThrew:
		return verifier.Threw(matches...)
	case CheckCalled:
		return verifier.Called()
	case CheckCalledWith:
		return verifier.CalledWith(args...)
	}
	return nil, fmt.Errorf("unknown check %q", v.Check)
}
