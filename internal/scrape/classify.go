package scrape

import (
	"fmt"

	"github.com/ifpanel/ifpanel-go/internal/domain"
)

// SubmitOutcome is the classified result of a form submission.
type SubmitOutcome struct {
	Success bool
	// Message is the panel's success banner when one was present
	Message string
	// Confirmed is false on the lenient paths where success was assumed
	// rather than observed
	Confirmed bool
}

// ClassifySubmit applies the ordered success/failure rules for a fetch-token-
// then-submit write, in precedence order:
//
//  1. redirect whose target contains listingPath         -> success
//  2. HTTP 200 with a success banner                     -> success (banner text)
//  3. HTTP 200 with an error banner                      -> RemoteRejected
//  4. anything else                                      -> UnexpectedResponse
func ClassifySubmit(op string, resp *domain.Response, listingPath string) (*SubmitOutcome, error) {
	if resp.RedirectsTo(listingPath) {
		return &SubmitOutcome{Success: true, Confirmed: true}, nil
	}

	if resp.StatusCode == 200 {
		doc, err := Document(resp.Body)
		if err != nil {
			return nil, err
		}
		if msg := SuccessBanner(doc); msg != "" {
			return &SubmitOutcome{Success: true, Message: msg, Confirmed: true}, nil
		}
		if msg := ErrorBanner(doc); msg != "" {
			return nil, domain.NewRemoteRejectedError(op, msg)
		}
	}

	return nil, domain.NewUnexpectedResponseError(op, resp.StatusCode, snippet(resp.Body))
}

// ClassifyDelete applies the same table with extra leniency for deletions.
// A response with no explicit error and no explicit success is treated as
// best-effort success (Confirmed=false); the panel often answers deletes
// with unrelated 200 pages.
func ClassifyDelete(op string, resp *domain.Response, listingPath string) (*SubmitOutcome, error) {
	outcome, err := ClassifySubmit(op, resp, listingPath)
	if err == nil {
		return outcome, nil
	}
	if _, rejected := domain.IsRemoteRejected(err); rejected {
		return nil, err
	}
	return &SubmitOutcome{Success: true, Confirmed: false}, nil
}

// snippet truncates a response body for error diagnostics
func snippet(body []byte) string {
	const max = 300
	if len(body) > max {
		return fmt.Sprintf("%s...", body[:max])
	}
	return string(body)
}
