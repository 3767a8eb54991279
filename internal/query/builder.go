package query

// DefaultNumCandidates is the per-shard candidate pool for vector queries.
const DefaultNumCandidates = 100

var (
	episodeFields = []Field{
		{Name: "title", Boost: 3},
		{Name: "description", Boost: 1},
		{Name: "show.title", Boost: 2},
	}
	showFields = []Field{
		{Name: "title", Boost: 3},
		{Name: "publisher", Boost: 2},
		{Name: "description", Boost: 1},
	}
	highlightFields = []string{"title", "description"}
)

// Builder produces lexical and vector query documents.
type Builder struct {
	vectorField   string
	numCandidates int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithVectorField sets the dense-vector field vector queries search.
func WithVectorField(name string) BuilderOption {
	return func(b *Builder) {
		if name != "" {
			b.vectorField = name
		}
	}
}

// WithNumCandidates sets the candidate pool for vector queries.
func WithNumCandidates(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.numCandidates = n
		}
	}
}

// NewBuilder creates a Builder with the "embedding" vector field and a
// candidate pool of DefaultNumCandidates.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		vectorField:   "embedding",
		numCandidates: DefaultNumCandidates,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Lexical builds a BM25 query from p.
func (b *Builder) Lexical(p Params) *Query {
	fields := episodeFields
	if p.Target == TargetShows {
		fields = showFields
	}
	q := &Query{
		Kind:      KindLexical,
		Target:    p.Target,
		Text:      p.Text,
		Fields:    fields,
		Highlight: highlightFields,
		Sort:      p.Sort,
		From:      max(p.From, 0),
		Size:      p.Size,
		Languages: p.Languages,
	}
	if q.Sort == "" {
		q.Sort = SortRelevance
	}
	if q.Sort == SortDate && p.Target == TargetEpisodes {
		q.DateField = "published_at"
	}
	return q
}

// Vector builds a nearest-neighbour query returning k hits for vec.
// The candidate pool never drops below k.
func (b *Builder) Vector(p Params, vec []float32) *Query {
	return &Query{
		Kind:          KindVector,
		Target:        p.Target,
		Vector:        vec,
		VectorField:   b.vectorField,
		K:             p.Size,
		NumCandidates: max(b.numCandidates, p.Size),
		Size:          p.Size,
		Languages:     p.Languages,
	}
}
