package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/models"
)

// insufficientInfoAnswer is the fixed summary-mode fallback when no cached
// analysis matches the question.
const insufficientInfoAnswer = "I don't have enough analyzed information to answer that. Run an analysis on the relevant table first, or ask in SQL mode."

// ChatDispatcher routes a question to the right answering strategy.
// Summary mode reads only from the analysis cache; SQL mode delegates to
// the agent. It performs no other I/O.
type ChatDispatcher struct {
	cache  *AnalysisCache
	agent  *SQLAgent
	logger *zap.Logger
}

// NewChatDispatcher wires the dispatcher to its two strategies.
func NewChatDispatcher(cache *AnalysisCache, agent *SQLAgent, logger *zap.Logger) *ChatDispatcher {
	return &ChatDispatcher{
		cache:  cache,
		agent:  agent,
		logger: logger.Named("chat"),
	}
}

// Ask answers one stateless question in the given mode.
func (d *ChatDispatcher) Ask(ctx context.Context, conn datasource.Connection, fingerprint, question string, mode models.ChatMode) (*models.ChatTurn, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown chat mode: %q", mode)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is empty")
	}

	if mode == models.ChatModeSummary {
		return d.answerFromCache(fingerprint, question), nil
	}
	return d.agent.Answer(ctx, conn, question)
}

// nameWords splits an item name into normalized words, each paired with its
// singular form so "orders" in a question matches a table named "order".
func nameWords(name string) []string {
	cleaned := strings.ToLower(name)
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	cleaned = strings.ReplaceAll(cleaned, "-", " ")

	var words []string
	for _, word := range strings.Fields(cleaned) {
		words = append(words, word, inflection.Singular(word))
	}
	return words
}

// questionWords returns the lowercase word set of a question.
func questionWords(question string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, ".,;:!?'\"()")
		if word != "" {
			words[word] = true
			words[inflection.Singular(word)] = true
		}
	}
	return words
}

// answerFromCache builds a summary-mode answer strictly from Ready cached
// analyses whose item name appears in the question. It never invokes the
// agent or any model.
func (d *ChatDispatcher) answerFromCache(fingerprint, question string) *models.ChatTurn {
	ready := d.cache.ReadyResults(fingerprint)
	asked := questionWords(question)

	var matched []AnalysisKey
	for key := range ready {
		for _, word := range nameWords(key.Item) {
			if asked[word] {
				matched = append(matched, key)
				break
			}
		}
	}

	turn := &models.ChatTurn{Question: question, Mode: models.ChatModeSummary}

	if len(matched) == 0 {
		d.logger.Debug("summary mode found no matching analyses",
			zap.String("fingerprint", fingerprint),
			zap.Int("ready_entries", len(ready)))
		turn.Answer = insufficientInfoAnswer
		return turn
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Schema != matched[j].Schema {
			return matched[i].Schema < matched[j].Schema
		}
		return matched[i].Item < matched[j].Item
	})

	var answer strings.Builder
	for i, key := range matched {
		if i > 0 {
			answer.WriteString("\n\n")
		}
		if len(matched) > 1 {
			answer.WriteString(fmt.Sprintf("%s.%s: ", key.Schema, key.Item))
		}
		answer.WriteString(ready[key].Summary)
	}
	turn.Answer = answer.String()
	return turn
}
