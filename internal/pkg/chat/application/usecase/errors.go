package usecase

import "fmt"

// ErrPersistence indicates an infrastructure/repository failure inside a
// use case. Reads wrap it after bounded retries; sends wrap it without
// retrying, so a failed send is never silently duplicated.
var ErrPersistence = fmt.Errorf("chat use case persistence error")
