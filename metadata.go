package parley

// GenerationMetadata is the last-known statistics for the most recently
// completed or in-flight generation. It is reset at the start of each turn.
type GenerationMetadata struct {
	TokensGenerated int     `json:"tokens_generated"`
	ElapsedSeconds  float64 `json:"elapsed_s"`
}
