package model

import "regexp"

// DefaultSession is the reserved session name that routes to mock handlers
// but is never created in the store and never recorded.
const DefaultSession = "default"

var sessionNameRe = regexp.MustCompile(`^[-A-Za-z0-9_]+$`)

// ValidSessionName reports whether name is a legal session identifier.
func ValidSessionName(name string) bool {
	return sessionNameRe.MatchString(name)
}
