package embedding

// ONNXOptions configures NewONNXEmbedder.
type ONNXOptions struct {
	ModelPath  string
	ModelName  string
	Dimensions int
	MaxTokens  int
	// OutputName is the pooled sentence-embedding output of the graph.
	OutputName string
}

func (o ONNXOptions) withDefaults() ONNXOptions {
	if o.Dimensions <= 0 {
		o.Dimensions = 768
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 512
	}
	if o.OutputName == "" {
		o.OutputName = "sentence_embedding"
	}
	if o.ModelName == "" {
		o.ModelName = "allenai-specter"
	}
	return o
}
