package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/vector"
)

const relevanceGraderPrompt = `You are a grader assessing relevance of a retrieved document to a user question.
Here is the retrieved document:

%s

Here is the user question: %s

If the document contains keywords related to the user question, grade it as relevant.
It does not need to be a stringent test. The goal is to filter out erroneous retrievals.
Give a binary score 'yes' or 'no' to indicate whether the document is relevant to the question.
Provide the binary score as a JSON with a single key 'score' and no preamble or explanation.`

const hallucinationGraderPrompt = `You are a grader assessing whether an answer is grounded in and supported by a set of facts.
Here are the facts:

%s

Here is the answer: %s

Give a binary score 'yes' or 'no' to indicate whether the answer is grounded in and supported by the facts.
Provide the binary score as a JSON with a single key 'score' and no preamble or explanation.`

const generatePrompt = `You are an assistant for question-answering tasks.
Use the following pieces of retrieved context to answer the question.
If you don't know the answer, just say that you don't know.
Keep the answer concise and grounded in the context.

Context:
%s

Question: %s

Answer:`

// SearchFunc supplies the web-search fallback. It returns merged snippet
// text for a query.
type SearchFunc func(ctx context.Context, query string) (string, error)

// Retriever is the part of Store the answer flow depends on.
type Retriever interface {
	Name() string
	Search(ctx context.Context, query string, topK int) ([]vector.SearchResult, error)
}

// Answer is the result of one self-reflective answer run.
type Answer struct {
	Text          string
	Sources       []string
	UsedWebSearch bool
	Grounded      bool
}

// SelfRAG answers questions with a retrieve, grade, generate, reflect
// loop: retrieved chunks are individually graded for relevance, the
// generated answer is graded for grounding, and an ungrounded answer
// triggers one web-search-augmented retry.
type SelfRAG struct {
	cfg    config.SelfRAGConfig
	llm    llms.Provider
	stores []Retriever
	search SearchFunc
}

func NewSelfRAG(cfg config.SelfRAGConfig, llm llms.Provider, stores []Retriever, search SearchFunc) *SelfRAG {
	return &SelfRAG{cfg: cfg, llm: llm, stores: stores, search: search}
}

func (s *SelfRAG) Answer(ctx context.Context, question string) (*Answer, error) {
	relevant, sources, err := s.retrieveRelevant(ctx, question)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Sources: sources}

	// Nothing relevant in the stores: go straight to the web.
	if len(relevant) == 0 {
		if s.cfg.WebSearchFallback && s.search != nil {
			return s.answerFromWeb(ctx, question, nil, answer)
		}
		answer.Text = "I could not find relevant information in the indexed documents to answer that."
		return answer, nil
	}

	docContext := strings.Join(relevant, "\n\n")
	text, err := s.generate(ctx, question, docContext)
	if err != nil {
		return nil, err
	}
	answer.Text = text

	answer.Grounded = s.grade(ctx, fmt.Sprintf(hallucinationGraderPrompt, docContext, text))
	if answer.Grounded {
		return answer, nil
	}

	slog.Debug("Answer not grounded, retrying with web search", "question", question)
	if s.cfg.WebSearchFallback && s.search != nil {
		return s.answerFromWeb(ctx, question, relevant, answer)
	}

	answer.Text += "\n\n(Note: this answer may not be fully supported by the indexed documents.)"
	return answer, nil
}

// retrieveRelevant searches every store and keeps only chunks the grader
// judges relevant. Grading runs concurrently, one LLM call per chunk.
func (s *SelfRAG) retrieveRelevant(ctx context.Context, question string) ([]string, []string, error) {
	var hits []vector.SearchResult
	for _, store := range s.stores {
		results, err := store.Search(ctx, question, s.cfg.TopK)
		if err != nil {
			return nil, nil, fmt.Errorf("retrieval from %s failed: %w", store.Name(), err)
		}
		hits = append(hits, results...)
	}

	verdicts := make([]bool, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	for i, hit := range hits {
		i, hit := i, hit
		g.Go(func() error {
			verdicts[i] = s.grade(gctx, fmt.Sprintf(relevanceGraderPrompt, hit.Content, question))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var relevant, sources []string
	seen := make(map[string]struct{})
	for i, hit := range hits {
		if !verdicts[i] {
			continue
		}
		relevant = append(relevant, hit.Content)
		if src := hit.Metadata["source"]; src != "" {
			if _, ok := seen[src]; !ok {
				seen[src] = struct{}{}
				sources = append(sources, src)
			}
		}
	}
	return relevant, sources, nil
}

func (s *SelfRAG) answerFromWeb(ctx context.Context, question string, docContext []string, answer *Answer) (*Answer, error) {
	webContext, err := s.search(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("web search fallback failed: %w", err)
	}
	answer.UsedWebSearch = true

	merged := strings.Join(append(docContext, webContext), "\n\n")
	text, err := s.generate(ctx, question, merged)
	if err != nil {
		return nil, err
	}
	answer.Text = text
	answer.Grounded = s.grade(ctx, fmt.Sprintf(hallucinationGraderPrompt, merged, text))
	return answer, nil
}

func (s *SelfRAG) generate(ctx context.Context, question, grounding string) (string, error) {
	resp, err := s.llm.Generate(ctx, []llms.Message{
		{Role: llms.RoleUser, Content: fmt.Sprintf(generatePrompt, grounding, question)},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// grade asks for a binary verdict in JSON form. Any failure, from the
// call itself to an unparseable reply, counts as "no".
func (s *SelfRAG) grade(ctx context.Context, prompt string) bool {
	resp, err := s.llm.Generate(ctx, []llms.Message{
		{Role: llms.RoleUser, Content: prompt},
	}, &llms.GenerateOptions{JSONMode: true})
	if err != nil {
		slog.Debug("Grading call failed", "error", err)
		return false
	}
	return parseVerdict(resp.Text)
}

func parseVerdict(text string) bool {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var verdict struct {
		Score string `json:"score"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &verdict); err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(verdict.Score), "yes")
}
