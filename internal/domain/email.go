package domain

// Person is a request-scoped pair of raw name fields. Normalization happens
// at pattern-generation time, not here.
type Person struct {
	FirstName string
	LastName  string
}

// EmailCandidate is one synthesized address. Tags are unique per
// (person, domain) request.
type EmailCandidate struct {
	Email      string `json:"email"`
	Pattern    string `json:"pattern"`
	Confidence int    `json:"confidence"`
}

// PersonResult is one entry of a bulk lookup.
type PersonResult struct {
	Person     Person
	Candidates []EmailCandidate
}
