package session

import "time"

// Clock supplies the current time. Abstracted so window pruning can be
// tested without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock implementation used in production.
var SystemClock Clock = systemClock{}
