package models

const (
	DefaultStyle    = "creative"
	DefaultLength   = "medium"
	DefaultEmojis   = "false"
	DefaultHashtags = "false"
)

// CaptionOptions holds the style fields sent along with the uploaded image.
type CaptionOptions struct {
	Style    string `json:"style" example:"creative" default:"creative"`
	Length   string `json:"length" example:"medium" default:"medium"`
	Emojis   string `json:"emojis" example:"false" default:"false"`
	Hashtags string `json:"hashtags" example:"false" default:"false"`
}

func DefaultCaptionOptions() CaptionOptions {
	return CaptionOptions{
		Style:    DefaultStyle,
		Length:   DefaultLength,
		Emojis:   DefaultEmojis,
		Hashtags: DefaultHashtags,
	}
}

// Only the exact string "true" enables a flag.
func (o CaptionOptions) EmojisEnabled() bool {
	return o.Emojis == "true"
}

func (o CaptionOptions) HashtagsEnabled() bool {
	return o.Hashtags == "true"
}

func (o CaptionOptions) EmojisInstruction() string {
	if o.EmojisEnabled() {
		return "Include emojis."
	}
	return "Do not include emojis."
}

func (o CaptionOptions) HashtagsInstruction() string {
	if o.HashtagsEnabled() {
		return "Include relevant hashtags."
	}
	return "Do not include hashtags."
}

// CaptionResponse is returned for both successful and failed requests;
// on failure Caption carries the error message.
type CaptionResponse struct {
	Caption string `json:"caption" example:"Lazy Sunday vibes on the red couch"`
}

type StreamChunk struct {
	Delta   string `json:"delta,omitempty"`
	Caption string `json:"caption,omitempty"`

	Err  error `json:"-"`
	Done bool  `json:"-"`
}

type HealthResponse struct {
	Status          string `json:"status" example:"ok"`
	ModelConfigured bool   `json:"model_configured"`
}
