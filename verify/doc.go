// Package verify holds RegistrationVerifier implementations used to guard
// destination registration: a captcha-style site verification check and a
// per-client burst guard. Chain composes them.
package verify
