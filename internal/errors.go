package internal

import "errors"

var ErrLinkNotFound = errors.New("link not found")
var ErrCheckNotFound = errors.New("check not found")
var ErrNoLinks = errors.New("no links to check, add some links first")

var ErrURLRequired = errors.New("URL is required")
var ErrInvalidURL = errors.New("invalid URL")
var ErrTooManyLinks = errors.New("maximum 8 links allowed")
