package plugin

// Opinion is a plugin's answer to a policy question. NoOpinion passes the
// question on to the next plugin and eventually to the default policy.
type Opinion int

const (
	NoOpinion Opinion = iota
	Allow
	Deny
)

// OpinionOf converts a boolean decision.
func OpinionOf(allowed bool) Opinion {
	if allowed {
		return Allow
	}
	return Deny
}

// Decided reports whether the opinion settles the question.
func (o Opinion) Decided() bool { return o == Allow || o == Deny }

// Allowed reports whether the opinion is Allow.
func (o Opinion) Allowed() bool { return o == Allow }

func (o Opinion) String() string {
	switch o {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	}
	return "none"
}
