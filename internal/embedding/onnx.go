//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a sentence-embedding model exported to ONNX. It requires
// CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	opts      ONNXOptions
	session   *ort.AdvancedSession
	tokenizer Tokenizer

	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads the model and pre-allocates its tensors.
// The ONNX runtime environment is initialised on first use.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	opts = opts.withDefaults()
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{opts: opts, tokenizer: &SimpleTokenizer{}}
	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize("", opts.MaxTokens)
	shape := ort.NewShape(1, int64(opts.MaxTokens))

	var err error
	if e.inputIDsTensor, err = ort.NewTensor(shape, inputIDs); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(shape, attentionMask); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDsTensor, err = ort.NewTensor(shape, tokenTypeIDs); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if e.outputTensor, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.Dimensions))); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", opts.ModelPath, err)
	}
	return e, nil
}

// Embed tokenizes text as a title/abstract pair and runs the model.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder closed")
	}

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.opts.MaxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding := make([]float32, e.opts.Dimensions)
	copy(embedding, e.outputTensor.GetData())
	NormalizeL2Slice(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text; the session has a fixed batch size of one.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(texts, func(t string) ([]float32, error) { return e.Embed(ctx, t) })
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.opts.Dimensions
}

// ModelName returns the configured model name.
func (e *ONNXEmbedder) ModelName() string {
	return e.opts.ModelName
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
	}
	e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor, e.outputTensor = nil, nil, nil, nil
	return err
}
