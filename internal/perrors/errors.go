// Package perrors classifies the four error kinds the trading pipeline reasons about:
// a single provider call failing, a degraded-but-continuable phase, a phase precondition
// failure, and a fatal startup failure.
package perrors

import "errors"

// Recoverable wraps a single provider/data-source failure the caller tolerates by
// skipping that one datum.
type Recoverable struct {
	Op  string
	Err error
}

func (e *Recoverable) Error() string { return "recoverable: " + e.Op + ": " + e.Err.Error() }
func (e *Recoverable) Unwrap() error { return e.Err }

func NewRecoverable(op string, err error) error {
	return &Recoverable{Op: op, Err: err}
}

// Degraded indicates a scan or analysis completed with missing market context; the
// caller records a placeholder and continues.
type Degraded struct {
	Reason string
}

func (e *Degraded) Error() string { return "degraded: " + e.Reason }

func NewDegraded(reason string) error {
	return &Degraded{Reason: reason}
}

// AbortPhase indicates a phase precondition failed (no scan today, store unavailable).
// The phase must emit an error progress event and return without partial writes.
type AbortPhase struct {
	Reason string
	Err    error
}

func (e *AbortPhase) Error() string {
	if e.Err != nil {
		return "abort phase: " + e.Reason + ": " + e.Err.Error()
	}
	return "abort phase: " + e.Reason
}
func (e *AbortPhase) Unwrap() error { return e.Err }

func NewAbortPhase(reason string, err error) error {
	return &AbortPhase{Reason: reason, Err: err}
}

// Fatal indicates store initialization failed; the trader must refuse to enable.
type Fatal struct {
	Err error
}

func (e *Fatal) Error() string { return "fatal: " + e.Err.Error() }
func (e *Fatal) Unwrap() error { return e.Err }

func NewFatal(err error) error {
	return &Fatal{Err: err}
}

// IsRecoverable reports whether err (or any error it wraps) is a Recoverable.
func IsRecoverable(err error) bool {
	var r *Recoverable
	return errors.As(err, &r)
}

// IsDegraded reports whether err (or any error it wraps) is a Degraded.
func IsDegraded(err error) bool {
	var d *Degraded
	return errors.As(err, &d)
}

// IsAbortPhase reports whether err (or any error it wraps) is an AbortPhase.
func IsAbortPhase(err error) bool {
	var a *AbortPhase
	return errors.As(err, &a)
}

// IsFatal reports whether err (or any error it wraps) is a Fatal.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}
