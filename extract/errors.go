package extract

import "errors"

// ErrEmptyDocument is returned when decoding and normalization leave no
// usable content to extract from.
var ErrEmptyDocument = errors.New("extract: no usable text in input")

// ErrQuotaExceeded is returned by the pre-flight quota check. Distinct from
// every extraction-layer error so callers can present upgrade/wait messaging.
var ErrQuotaExceeded = errors.New("extract: quota exceeded")
