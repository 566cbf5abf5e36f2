package models

// MappingMethod records which tier of the subject mapper produced a result.
type MappingMethod string

const (
	MethodDirect         MappingMethod = "direct"
	MethodPattern        MappingMethod = "pattern"
	MethodFuzzy          MappingMethod = "fuzzy"
	MethodNone           MappingMethod = "none"
	MethodReverseDirect  MappingMethod = "reverse-direct"
	MethodReversePattern MappingMethod = "pattern-reverse"
)

// SubjectMapping is the result of aligning a subject name to a code.
// An empty Code means nothing matched; that is a normal result, not an error.
type SubjectMapping struct {
	Code       string        `json:"code,omitempty"`
	Confidence float64       `json:"confidence"`
	Method     MappingMethod `json:"method"`
	Suggestion string        `json:"suggestion,omitempty"` // informational, set for MethodNone only
}

// Found reports whether a code was resolved.
func (m SubjectMapping) Found() bool { return m.Code != "" }

// ReverseMapping is the result of expanding a code back into subject names.
type ReverseMapping struct {
	Names      []string      `json:"names"`
	Confidence float64       `json:"confidence"`
	Method     MappingMethod `json:"method"`
}

// SubjectRef locates one subject inside one catalog.
type SubjectRef struct {
	Branch   string `json:"branch"`
	Semester string `json:"semester"`
	Subject  string `json:"subject"`          // catalog-native id
	Name     string `json:"name,omitempty"`   // display name when the catalog carries one
	Source   Source `json:"source,omitempty"` // catalog the ref came from
}
