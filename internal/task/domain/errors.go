package domain

import "errors"

var ErrTaskNotFound = errors.New("task_not_found")
