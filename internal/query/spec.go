package query

// Predicate is a filter condition.
//
// This is a sealed interface - only types in this package implement
// it. The marker method pattern prevents external implementations and
// enables exhaustive type switches in the compiler.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals matches documents whose body field equals a literal value.
type Equals struct {
	// Field is the top-level body field name.
	Field string
	// Value is the literal to compare against.
	Value any
}

func (Equals) predicateNode() {}

// And requires every contained predicate to match.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// IncludeAllEffectiveTimeMarker is the customization token that
// disables the implicit current-only visibility for one query. Tag it
// with Spec.IncludeAllEffectiveTime; the visibility filter consumes it
// exactly once before dispatch.
const IncludeAllEffectiveTimeMarker = "strata.include-all-effective-time"

// Spec describes one document query.
type Spec struct {
	// TypeTag scopes the query to one document type.
	TypeTag string

	// Filter is the optional caller predicate.
	Filter Predicate

	// Skip and Take page the result. Take <= 0 means no limit.
	Skip int
	Take int

	customizations []string
	currentOnly    bool
}

// New creates a query spec for one document type.
func New(typeTag string) *Spec {
	return &Spec{TypeTag: typeTag}
}

// Where sets the caller predicate.
func (s *Spec) Where(p Predicate) *Spec {
	s.Filter = p
	return s
}

// Page sets skip/take pagination.
func (s *Spec) Page(skip, take int) *Spec {
	s.Skip = skip
	s.Take = take
	return s
}

// Customize appends a raw customization token. Tokens survive until a
// listener consumes them; unconsumed tokens fail compilation so typos
// surface instead of silently changing visibility.
func (s *Spec) Customize(token string) *Spec {
	s.customizations = append(s.customizations, token)
	return s
}

// IncludeAllEffectiveTime tags the query to return Historical as well
// as Current revisions.
func (s *Spec) IncludeAllEffectiveTime() *Spec {
	return s.Customize(IncludeAllEffectiveTimeMarker)
}

// consume removes every occurrence of token, reporting whether at
// least one was present.
func (s *Spec) consume(token string) bool {
	found := false
	kept := s.customizations[:0]
	for _, t := range s.customizations {
		if t == token {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	s.customizations = kept
	return found
}
