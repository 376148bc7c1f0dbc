package captcha

import "errors"

// Validation failures. Every one of them leaves the challenge consumed.
var (
	ErrInvalidOrExpired    = errors.New("invalid or expired captcha")
	ErrInvalidAnswerFormat = errors.New("invalid captcha answer")
	ErrIncorrectAnswer     = errors.New("captcha answer is incorrect")
)

// ErrAlreadyExpired is returned by a backend asked to store a challenge with no lifetime left.
var ErrAlreadyExpired = errors.New("captcha challenge already expired")
