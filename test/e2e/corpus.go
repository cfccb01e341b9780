// Package e2e exercises the full ingestion and retrieval path: files on disk
// through the loaders and chunking pipeline into a store, then back out
// through queries.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
)

// CorpusDocument is one generated document: a file name and content carrying
// a numbered signature so every document in the corpus is distinct.
type CorpusDocument struct {
	ID       string
	FileName string
	Content  string
}

// QueryTestCase pairs a query with the source file expected at the top of the
// results. Queries repeat a document's exact content: the deterministic mock
// embedder maps identical text to identical vectors, so the matching chunk
// scores 1.0 and must outrank every other document.
type QueryTestCase struct {
	Query          string
	ExpectedSource string
	Description    string
}

// Corpus holds documents and query test cases for the end-to-end tests.
type Corpus struct {
	Documents []CorpusDocument
	TestCases []QueryTestCase
}

// corpusExtensions rotates plain-text extensions across corpus files. These
// formats preserve file content exactly through loading, which the exact-text
// queries depend on.
var corpusExtensions = []string{".txt", ".md", ".rst"}

// BuildCorpus returns a corpus of 100 distinct documents and one query test
// case per document.
func BuildCorpus() *Corpus {
	docs := buildDocuments(100)
	cases := buildQueryTestCases(docs)
	return &Corpus{Documents: docs, TestCases: cases}
}

func buildDocuments(n int) []CorpusDocument {
	topics := []string{
		"Python is a high-level programming language used for web development and data science.",
		"Kubernetes is an open-source platform that automates deployment and scaling of containers.",
		"React is a JavaScript library for building user interfaces with hooks and components.",
		"Go is a statically typed language whose concurrency model uses goroutines and channels.",
		"PostgreSQL is an advanced relational database supporting JSON and full-text search.",
		"Docker packages applications into portable container images that run anywhere.",
		"Machine learning algorithms learn patterns from data without explicit programming.",
		"Neural networks are layered models inspired by the brain that power modern AI.",
		"REST is an architectural style where API endpoints use HTTP methods and status codes.",
		"GraphQL is a query language that lets clients request exactly the fields they need.",
		"TypeScript adds a static type system to JavaScript and catches errors at compile time.",
		"Redis is an in-memory data store used for caching and session storage.",
		"Elasticsearch is a horizontally scalable search and analytics engine.",
		"AWS Lambda runs code without provisioning servers and scales automatically.",
		"Terraform manages cloud infrastructure declaratively as versioned code.",
		"Prometheus collects time-series metrics and powers alerting rules.",
		"gRPC is a high-performance RPC framework built on HTTP/2 and protocol buffers.",
		"OAuth 2.0 is an authorization framework enabling secure delegated access.",
		"JSON web tokens are a compact format widely used for stateless authentication.",
		"Continuous integration runs the test suite automatically on every commit.",
		"Git is a distributed version control system that tracks changes in source code.",
		"SQL manages relational data with SELECT, INSERT, UPDATE, and DELETE statements.",
		"Microservices split an application into small services deployed independently.",
		"Apache Kafka is a distributed event streaming platform for high throughput.",
		"Nginx is a web server and reverse proxy that balances load across backends.",
		"Object-oriented programming organizes code around encapsulation and inheritance.",
		"Functional programming treats computation as pure functions and avoids mutable state.",
		"Design patterns are reusable solutions such as Singleton, Factory, and Observer.",
		"API versioning preserves backward compatibility through URLs or headers.",
		"Database indexes speed up queries and are critical for large tables.",
		"Cryptography secures data with keys, encryption, and decryption algorithms.",
		"TLS certificates verify server identity and encrypt web traffic end to end.",
		"Load balancers distribute traffic and remove single points of failure.",
		"Cache invalidation is the hard part of every caching strategy.",
		"Event sourcing stores state as an append-only sequence of events.",
		"Domain-driven design models software around aggregates and bounded contexts.",
		"Scrum organizes work into sprints that typically last two weeks.",
		"Unit tests verify small pieces of code in isolation using mocks.",
		"Integration tests verify that components work together across boundaries.",
		"Dependency injection provides collaborators from outside and improves testability.",
		"Semantic search matches meaning rather than exact keywords using embeddings.",
		"Keyword search matches terms through inverted indexes over tokens.",
		"Vector databases rank stored embeddings by cosine or dot-product similarity.",
		"Embedding models transform sentences into dense numeric vectors.",
		"Chunking splits long documents into overlapping windows to preserve context.",
		"Retrieval-augmented generation grounds language models in retrieved documents.",
		"Prompt engineering guides model behavior with instructions and examples.",
		"WebSockets enable bidirectional real-time communication for chat and live updates.",
		"Message queues decouple producers from consumers for asynchronous processing.",
		"Rate limiting protects APIs by throttling requests per user or globally.",
	}

	out := make([]CorpusDocument, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("e2e-doc-%03d", i+1)
		ext := corpusExtensions[i%len(corpusExtensions)]
		// The numbered suffix keeps every document distinct even when the
		// topic list wraps around.
		content := fmt.Sprintf("%s Corpus entry %03d.", topics[i%len(topics)], i+1)
		out = append(out, CorpusDocument{
			ID:       id,
			FileName: id + ext,
			Content:  content,
		})
	}
	return out
}

func buildQueryTestCases(docs []CorpusDocument) []QueryTestCase {
	cases := make([]QueryTestCase, 0, len(docs))
	for _, d := range docs {
		cases = append(cases, QueryTestCase{
			Query:          d.Content,
			ExpectedSource: d.FileName,
			Description:    fmt.Sprintf("content of %s retrieves itself", d.FileName),
		})
	}
	return cases
}

// WriteFiles writes every corpus document into dir under its file name.
func (c *Corpus) WriteFiles(dir string) error {
	for _, d := range c.Documents {
		path := filepath.Join(dir, d.FileName)
		if err := os.WriteFile(path, []byte(d.Content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", d.FileName, err)
		}
	}
	return nil
}
