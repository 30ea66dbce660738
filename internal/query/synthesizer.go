package query

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/docqueryhq/docquery/internal/apperr"
	"github.com/docqueryhq/docquery/internal/core"
	"github.com/docqueryhq/docquery/internal/models"
)

// UnsupportedSentinel is the exact phrase the model must use when the
// evidence does not answer the question. Keeping it fixed lets the
// service flag unsupported answers instead of trusting the model.
const UnsupportedSentinel = "The provided documents do not contain a clear answer to this question."

// noEvidenceAnswer is returned without any model call when retrieval
// produced nothing relevant.
const noEvidenceAnswer = "I could not find any relevant information in the documents to answer your question."

const systemPrompt = `You are a meticulous document analyst. Answer strictly from the evidence excerpts you are given. Never use outside knowledge and never invent citations.`

type Synthesizer struct {
	llm core.LLMProvider
	log *zap.SugaredLogger
}

func NewSynthesizer(llm core.LLMProvider, log *zap.SugaredLogger) *Synthesizer {
	return &Synthesizer{llm: llm, log: log}
}

// Synthesize produces an answer from the question and evidence. With
// no evidence it declines immediately; otherwise the model answers
// from the numbered excerpts, reports which it cited and a confidence
// score, and optionally a logic tree in a second structured call.
// Cited evidence is validated against the input set, so the answer can
// never cite a chunk the model was not shown.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, evidence []models.Evidence, includeLogic bool) (*models.Answer, error) {
	if len(evidence) == 0 {
		return &models.Answer{
			Text:      noEvidenceAnswer,
			Supported: false,
			Evidence:  []models.Evidence{},
			Provider:  s.llm.Name(),
		}, nil
	}

	raw, err := s.llm.Generate(ctx, systemPrompt, answerPrompt(question, evidence))
	if err != nil {
		return nil, apperr.Wrap(apperr.ExternalService, "generate answer", err)
	}

	text, citedIDs, confidence := parseAnswer(raw)
	cited := filterCited(evidence, citedIDs)

	answer := &models.Answer{
		Text:       text,
		Supported:  !strings.Contains(text, UnsupportedSentinel),
		Confidence: confidence,
		Evidence:   cited,
		Provider:   s.llm.Name(),
	}
	if !answer.Supported {
		answer.Confidence = 0
		answer.Evidence = []models.Evidence{}
	}

	if includeLogic && answer.Supported {
		answer.LogicTree = s.logicTree(ctx, question, evidence)
	}
	return answer, nil
}

func answerPrompt(question string, evidence []models.Evidence) string {
	var sb strings.Builder
	sb.WriteString("Evidence excerpts from the document set:\n\n")
	for _, ev := range evidence {
		fmt.Fprintf(&sb, "[%s] (relevance %.2f)\n%s\n\n", ev.ChunkID, ev.Score, ev.Text)
	}
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	sb.WriteString(`Instructions:
1. Answer the question using only the evidence above. Quote exact figures, limits and conditions where present.
2. If the evidence does not contain the answer, reply with exactly: "` + UnsupportedSentinel + `"
3. After the answer, on its own line, list the evidence ids you actually used as: Cited: id1, id2
4. On the final line give a confidence from 0.0 to 1.0 as: Confidence: 0.8`)
	return sb.String()
}

var (
	citedRe      = regexp.MustCompile(`(?im)^\s*Cited:\s*(.+)$`)
	confidenceRe = regexp.MustCompile(`(?i)Confidence:\s*([0-9]*\.?[0-9]+)`)
)

// parseAnswer splits the model output into answer text, cited ids and
// confidence. Missing trailers degrade gracefully: nil ids means "the
// model did not say", confidence defaults to 0.5.
func parseAnswer(raw string) (text string, citedIDs []string, confidence float64) {
	confidence = 0.5
	text = strings.TrimSpace(raw)

	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 && v <= 1 {
			confidence = v
		}
		text = strings.TrimSpace(strings.Split(text, m[0])[0])
	}

	if m := citedRe.FindStringSubmatch(text); m != nil {
		for _, id := range strings.Split(m[1], ",") {
			if id = strings.TrimSpace(id); id != "" && !strings.EqualFold(id, "none") {
				citedIDs = append(citedIDs, id)
			}
		}
		text = strings.TrimSpace(strings.Replace(text, m[0], "", 1))
	}
	return text, citedIDs, confidence
}

// filterCited keeps the evidence the model claimed to use, in original
// retrieval order, dropping any id that was never in the input set.
// A nil claim keeps everything the model saw.
func filterCited(evidence []models.Evidence, citedIDs []string) []models.Evidence {
	if citedIDs == nil {
		return evidence
	}
	claimed := make(map[string]bool, len(citedIDs))
	for _, id := range citedIDs {
		claimed[id] = true
	}
	kept := []models.Evidence{}
	for _, ev := range evidence {
		if claimed[ev.ChunkID] {
			kept = append(kept, ev)
		}
	}
	return kept
}

const logicTreePromptFmt = `Analyze the question and evidence, then break the reasoning into ordered steps.

Question: %s

Evidence:
%s

Respond with a single JSON object and nothing else, in this exact shape:
{"kind": "AND", "steps": [{"statement": "...", "satisfied": true, "evidence_id": "..."}]}
"kind" is "AND" when every step must hold, "OR" when any one suffices. "evidence_id" names the evidence excerpt the step rests on, or is omitted.`

// logicTree asks for a structured reasoning trace. Failures are
// logged and swallowed: an answer without a trace beats no answer.
func (s *Synthesizer) logicTree(ctx context.Context, question string, evidence []models.Evidence) *models.LogicTree {
	var eb strings.Builder
	for _, ev := range evidence {
		fmt.Fprintf(&eb, "[%s] %s\n", ev.ChunkID, ev.Text)
	}

	raw, err := s.llm.Generate(ctx, systemPrompt, fmt.Sprintf(logicTreePromptFmt, question, eb.String()))
	if err != nil {
		s.log.Warnw("logic tree generation failed", "error", err)
		return nil
	}

	valid := make(map[string]bool, len(evidence))
	for _, ev := range evidence {
		valid[ev.ChunkID] = true
	}
	tree, err := parseLogicTree(raw, valid)
	if err != nil {
		s.log.Warnw("logic tree parse failed", "error", err)
		return nil
	}
	return tree
}

// parseLogicTree extracts the JSON object from the model output,
// tolerating code fences and surrounding prose. Steps citing unknown
// evidence ids keep the step but lose the citation.
func parseLogicTree(raw string, validIDs map[string]bool) (*models.LogicTree, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var tree models.LogicTree
	if err := json.Unmarshal([]byte(raw[start:end+1]), &tree); err != nil {
		return nil, fmt.Errorf("unmarshal logic tree: %w", err)
	}

	tree.Kind = strings.ToUpper(strings.TrimSpace(tree.Kind))
	if tree.Kind != "AND" && tree.Kind != "OR" {
		tree.Kind = "AND"
	}
	if len(tree.Steps) == 0 {
		return nil, fmt.Errorf("logic tree has no steps")
	}
	for i := range tree.Steps {
		if tree.Steps[i].EvidenceID != "" && !validIDs[tree.Steps[i].EvidenceID] {
			tree.Steps[i].EvidenceID = ""
		}
	}
	return &tree, nil
}
