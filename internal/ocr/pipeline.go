package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Source names the stage that produced a parse result
type Source string

const (
	SourceAssisted  Source = "ai"
	SourceHeuristic Source = "heuristic"
)

// ErrEmptyResult is reported when an assisted parser returns no receipt and no error
var ErrEmptyResult = errors.New("assisted parser returned no receipt")

// AssistedParser is a higher quality, usually remote, parser tried before
// the heuristics (an LLM, for example)
type AssistedParser interface {
	ParseText(ctx context.Context, text string) (*ParsedReceipt, error)
}

// Result is the outcome of a pipeline run
type Result struct {
	Receipt *ParsedReceipt
	Source  Source
	// AssistErr is why the assisted stage was not used, if it was attempted
	AssistErr error
}

// Pipeline tries the assisted parser once and falls back to the heuristic
// Parser on any failure
type Pipeline struct {
	parser   *Parser
	assisted AssistedParser
}

// NewPipeline creates a Pipeline. assisted may be nil, in which case only the
// heuristic parser runs.
func NewPipeline(parser *Parser, assisted AssistedParser) *Pipeline {
	if parser == nil {
		parser = NewParser()
	}
	return &Pipeline{
		parser:   parser,
		assisted: assisted,
	}
}

// Parse always returns a receipt
func (p *Pipeline) Parse(ctx context.Context, text string) Result {
	if p.assisted == nil || strings.TrimSpace(text) == "" {
		return Result{Receipt: p.parser.Parse(text), Source: SourceHeuristic}
	}

	receipt, err := p.assisted.ParseText(ctx, text)
	if err == nil && receipt == nil {
		err = ErrEmptyResult
	}
	if err != nil {
		slog.Warn("Assisted receipt parse failed, falling back to heuristics", "error", err)
		return Result{
			Receipt:   p.parser.Parse(text),
			Source:    SourceHeuristic,
			AssistErr: err,
		}
	}

	receipt = Normalize(receipt, p.parser.clock.Now())
	receipt.RawText = text
	return Result{Receipt: receipt, Source: SourceAssisted}
}
