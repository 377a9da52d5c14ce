package storage

import "errors"

// ErrTaskNotFound covers both "no such task" and "task owned by someone
// else". The two cases are deliberately indistinguishable so that the
// existence of other users' tasks never leaks.
var ErrTaskNotFound = errors.New("task not found")
