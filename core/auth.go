package core

// Principal is the authenticated administrator a request or console session acts for.
type Principal struct {
	Username string
}

func (p Principal) IsAnonymous() bool { return p.Username == "" }
