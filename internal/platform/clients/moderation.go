package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// moderationTimeout covers video analysis, the slowest review path.
const moderationTimeout = 30 * time.Second

// Moderation provider names accepted by NewModeration.
const (
	ModerationProviderSaaSImage  = "saas-image"
	ModerationProviderSaaSVideo  = "saas-video"
	ModerationProviderLocalImage = "local-image"
	ModerationProviderDisabled   = "disabled"
)

type Media struct {
	MediaType   string `json:"mediaType"`
	StoragePath string `json:"storagePath,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

type Verdict struct {
	Action string             `json:"action"`
	Reason string             `json:"reason,omitempty"`
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Moderation reviews media before publication. The provider decides the
// analysis endpoint; verdicts come back either as an explicit action or
// as raw category scores that are folded through the block/warn
// thresholds here.
type Moderation struct {
	api
	provider       string
	blockThreshold float64
	warnThreshold  float64
}

func NewModeration(provider string, blockThreshold float64, warnThreshold float64, cfg Config) *Moderation {
	return &Moderation{
		api: api{
			baseURL:    cfg.BaseURL,
			secret:     cfg.Secret,
			httpClient: &http.Client{Timeout: moderationTimeout},
		},
		provider:       provider,
		blockThreshold: blockThreshold,
		warnThreshold:  warnThreshold,
	}
}

func (m *Moderation) Moderate(ctx context.Context, media Media) (Verdict, error) {
	path, err := m.analysisPath()
	if err != nil {
		return Verdict{}, err
	}
	if path == "" {
		return Verdict{Action: "allow"}, nil
	}

	var out struct {
		Data Verdict `json:"data"`
	}
	if err := m.do(ctx, http.MethodPost, path, media, &out); err != nil {
		return Verdict{}, err
	}
	verdict := out.Data
	if verdict.Action == "" {
		verdict = m.scoreVerdict(verdict)
	}
	return verdict, nil
}

func (m *Moderation) analysisPath() (string, error) {
	switch m.provider {
	case ModerationProviderSaaSImage:
		return "/v1/moderate/image", nil
	case ModerationProviderSaaSVideo:
		return "/v1/moderate/video", nil
	case ModerationProviderLocalImage:
		return "/analyze", nil
	case ModerationProviderDisabled, "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown moderation provider %q", m.provider)
	}
}

// scoreVerdict folds raw category scores into an action when the provider
// returned no explicit decision. The highest scoring category drives the
// outcome and becomes the reason.
func (m *Moderation) scoreVerdict(verdict Verdict) Verdict {
	var (
		topCategory string
		topScore    float64
	)
	for category, score := range verdict.Scores {
		if score > topScore {
			topCategory, topScore = category, score
		}
	}
	switch {
	case m.blockThreshold > 0 && topScore >= m.blockThreshold:
		verdict.Action = "block"
		verdict.Reason = topCategory
	case m.warnThreshold > 0 && topScore >= m.warnThreshold:
		verdict.Action = "warn"
		verdict.Reason = topCategory
	default:
		verdict.Action = "allow"
	}
	return verdict
}
