package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huseyinardaarslan/LawRagBot/docstore"
	"github.com/huseyinardaarslan/LawRagBot/llm"
)

type queryState int

const (
	stateIdle queryState = iota
	stateClassifying
	stateRetrieving
	stateComposing
	stateDone
	stateOutOfContext
	stateErrored
)

func (s queryState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateClassifying:
		return "classifying"
	case stateRetrieving:
		return "retrieving"
	case stateComposing:
		return "composing"
	case stateDone:
		return "done"
	case stateOutOfContext:
		return "out_of_context"
	case stateErrored:
		return "errored"
	}

	return "unknown"
}

// outOfContextSentinel is the exact verdict the relevance gate returns
// for off-topic queries. Anything else means the query proceeds.
const outOfContextSentinel = "OUT_OF_CONTEXT_QUERY"

const refusalMessage = "Your query is outside my area of expertise, which focuses on " +
	"USCIS AAO decisions and U.S. immigration law. I cannot assist with this topic."

type searcher interface {
	Search(ctx context.Context, query string, topK int, threshold float32) ([]docstore.SearchHit, error)
}

type answerComposer interface {
	Compose(ctx context.Context, query string, hits []docstore.SearchHit) (string, error)
}

// Orchestrator drives a query through classify, retrieve and compose.
// All collaborators are injected, so each stage can be exercised with
// mocks.
type Orchestrator struct {
	log            *slog.Logger
	search         searcher
	llm            llm.Completer
	composer       answerComposer
	topK           int
	scoreThreshold float32
	timeout        time.Duration
}

func NewOrchestrator(log *slog.Logger, search searcher, completer llm.Completer, composer answerComposer, cfg *Config) *Orchestrator {
	return &Orchestrator{
		log:            log,
		search:         search,
		llm:            completer,
		composer:       composer,
		topK:           cfg.TopK,
		scoreThreshold: cfg.ScoreThreshold,
		timeout:        time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}
}

// stageResult tags the outcome of one stage: the state to enter next
// plus whatever payload the stage produced. Errors never cross stage
// boundaries as panics or sentinel strings; they ride in the tag.
type stageResult struct {
	next   queryState
	answer string
	hits   []docstore.SearchHit
	err    error
}

// Answer runs the query state machine to a terminal state and returns
// the single user-facing answer string. Failures at any stage collapse
// into one error message; the shared index is never affected by a
// failed query.
func (o *Orchestrator) Answer(ctx context.Context, query string) string {
	state := stateClassifying
	var hits []docstore.SearchHit

	for {
		var res stageResult
		switch state {
		case stateClassifying:
			res = o.classifyRelevance(ctx, query)
		case stateRetrieving:
			res = o.retrieve(ctx, query)
			hits = res.hits
		case stateComposing:
			res = o.composeAnswer(ctx, query, hits)
		}

		switch res.next {
		case stateErrored:
			o.log.Error("query failed", "state", state.String(), "error", res.err)
			return "Error while processing your query: " + res.err.Error()
		case stateOutOfContext:
			o.log.Info("query out of context", "query", query)
			return refusalMessage
		case stateDone:
			return res.answer
		}

		state = res.next
	}
}

func (o *Orchestrator) classifyRelevance(ctx context.Context, query string) stageResult {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	verdict, err := o.llm.Complete(ctx, relevancePrompt(query))
	if err != nil {
		return stageResult{next: stateErrored, err: fmt.Errorf("relevance check failed: %w", err)}
	}

	if strings.TrimSpace(verdict) == outOfContextSentinel {
		return stageResult{next: stateOutOfContext}
	}

	return stageResult{next: stateRetrieving}
}

func (o *Orchestrator) retrieve(ctx context.Context, query string) stageResult {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	hits, err := o.search.Search(ctx, query, o.topK, o.scoreThreshold)
	if err != nil {
		return stageResult{next: stateErrored, err: fmt.Errorf("document search failed: %w", err)}
	}

	if len(hits) == 0 {
		answer := fmt.Sprintf(
			"No relevant documents found matching the criteria (score >= %.1f). "+
				"Consider rephrasing your question or asking about a different aspect of AAO decisions.",
			o.scoreThreshold)
		return stageResult{next: stateDone, answer: answer}
	}

	return stageResult{next: stateComposing, hits: hits}
}

func (o *Orchestrator) composeAnswer(ctx context.Context, query string, hits []docstore.SearchHit) stageResult {
	answer, err := o.composer.Compose(ctx, query, hits)
	if err != nil {
		return stageResult{next: stateErrored, err: fmt.Errorf("answer composition failed: %w", err)}
	}

	return stageResult{next: stateDone, answer: answer}
}

func relevancePrompt(query string) string {
	return fmt.Sprintf(`You are a legal research expert specializing in U.S. immigration law and USCIS AAO decisions.

Evaluate whether the following query is directly related to USCIS AAO decisions, U.S. immigration law, or closely related legal topics.

If the query is NOT related to these legal areas, respond with the exact string %s and nothing else.
If the query IS related, respond with the single word RELEVANT.

Query: %s`, outOfContextSentinel, query)
}
