package collection

// Generation identifies one built index of a collection domain. Rebuilds
// create a new generation and swap the active pointer once it is complete.
type Generation struct {
	Domain    string
	Number    int64
	Index     string
	Chunks    int
	VectorDim int
	BuiltAt   int64 // unix millis
}
