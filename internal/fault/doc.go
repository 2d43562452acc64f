// Package fault defines the error taxonomy shared by every network-facing
// component and the retry executor built on top of it.
//
// # Error kinds
//
// Every failure raised by the fetcher, the repository client, the markup
// validator and the extractor is an *Error carrying one of eight kinds:
//
//   - KindNetwork: transport failure, no usable response
//   - KindTimeout: request aborted or deadline exceeded
//   - KindNotFound: the remote resource does not exist (HTTP 404)
//   - KindServer: the remote side failed (HTTP 5xx)
//   - KindValidation: a response or document failed validation
//   - KindParse: a document could not be decomposed
//   - KindInvalidInput: the caller asked for something impossible
//   - KindInternal: a bug or unexpected condition
//
// Each error carries a message, a status number, an optional wrapped cause
// and a context map with enough detail to reproduce the failure.
//
// # Retry
//
// Retry runs an attempt-indexed operation up to a maximum number of
// attempts. The delay before attempt k+1 is k*baseDelay (linear). By default
// only network, timeout and server errors are retried; exhausting attempts
// returns the last error unchanged.
//
//	err := fault.Retry(ctx, fault.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second},
//	    func(ctx context.Context, attempt int) error {
//	        return doRequest(ctx)
//	    })
package fault
