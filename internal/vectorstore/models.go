package vectorstore

// Document is the caller-facing view of a stored document.
type Document struct {
	// ID is the unique identifier for the document.
	// An empty ID is replaced with a random UUID on add.
	ID string `json:"id"`

	// Content is the text content of the document
	Content string `json:"content"`

	// Metadata contains additional key-value pairs for filtering
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Entry is a document together with the embedding computed when it was added.
type Entry struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	Embedding []float32              `json:"embedding"`
}

// Document returns the public view of the entry, without its embedding.
func (e Entry) Document() Document {
	return Document{
		ID:       e.ID,
		Content:  e.Content,
		Metadata: copyMetadata(e.Metadata),
	}
}

// SearchResult represents a search result from the vector store.
type SearchResult struct {
	// ID is the document identifier
	ID string `json:"id"`

	// Content is the document text content
	Content string `json:"content"`

	// Metadata contains the document metadata
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Score is the cosine similarity between the query and the document,
	// in [-1, 1] (higher = more similar)
	Score float64 `json:"score"`
}

// entry is the store-internal representation of an Entry.
type entry struct {
	Entry
	seq uint64 // insertion order, used for stable tie-breaking
}

func (e *entry) clone() Entry {
	return Entry{
		ID:        e.ID,
		Content:   e.Content,
		Metadata:  copyMetadata(e.Metadata),
		Embedding: append([]float32(nil), e.Embedding...),
	}
}

func copyMetadata(metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		return nil
	}

	result := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		result[k] = v
	}
	return result
}
