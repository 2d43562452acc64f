// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Values that look like credentials: bearer tokens, GitHub tokens
//     (ghp_..., github_pat_...), JWTs, URLs with embedded passwords
//   - Attributes whose key names a secret (token, password, credential)
//
// Even in verbose mode, sensitive values are masked. A GitHub token passed to
// the repository client must never reach a log file.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("request sent",
//	    "authorization", "Bearer ghp_...", // logged as ***REDACTED***
//	    "url", "https://api.github.com/repos/acme/widgets",
//	)
//
//	slog.SetDefault(logger)
package log
